package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xtls/xray-core/infra/conf"
)

// EncodeXray renders the descriptor as a pretty printed xray outbound object.
func EncodeXray(d *Descriptor) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("encode xray outbound: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// ValidateXray checks that an outbound fragment is accepted by xray-core's
// config loader.
func ValidateXray(content string) error {
	var outbound conf.OutboundDetourConfig
	if err := json.Unmarshal([]byte(content), &outbound); err != nil {
		return fmt.Errorf("xray rejected outbound json: %w", err)
	}
	if _, err := outbound.Build(); err != nil {
		return fmt.Errorf("xray rejected outbound %q: %w", outbound.Tag, err)
	}
	return nil
}

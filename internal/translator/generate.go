package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Dialect is the configuration format a fragment is generated for.
type Dialect string

const (
	// DialectXray is the nested JSON outbound format of xray.
	DialectXray Dialect = "xray"
	// DialectMihomo is the YAML proxy list format of mihomo.
	DialectMihomo Dialect = "mihomo"
)

// Kind tells the caller where a generated fragment belongs.
type Kind string

const (
	KindSubscriptionProvider Kind = "subscription-provider"
	KindSingleProxy          Kind = "single-proxy"
)

// Result is a generated configuration fragment.
type Result struct {
	Kind    Kind   `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ParseDialect accepts a core name or the A/B shorthand.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xray", "a":
		return DialectXray, nil
	case "mihomo", "clash", "b":
		return DialectMihomo, nil
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// Generate turns a share link or subscription url into a fragment for the given
// dialect. existing is the text of the document the fragment will be inserted
// into and is only read to keep generated names unique.
func Generate(uri string, dialect Dialect, existing string) (*Result, error) {
	uri = FixIllegalUrl(uri)
	lower := strings.ToLower(uri)

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if dialect != DialectMihomo {
			return nil, fmt.Errorf("%w: subscriptions are not supported by %s", ErrUnsupportedFeature, dialect)
		}
		name := AllocateName("subscription", existing)
		content, err := encodeProvider(name, uri)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: KindSubscriptionProvider, Name: name, Content: content}, nil
	}

	scheme, _, _ := strings.Cut(lower, "://")
	if dialect == DialectXray && normalizeScheme(scheme) == ProtocolHysteria2 {
		return nil, fmt.Errorf("%w: hysteria2 is not supported by %s", ErrUnsupportedFeature, dialect)
	}
	if dialect == DialectMihomo && strings.Contains(uri, "type=xhttp") {
		return nil, fmt.Errorf("%w: xhttp transport is not supported by %s", ErrUnsupportedFeature, dialect)
	}

	d, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	if dialect == DialectMihomo && d.Network() == "xhttp" {
		return nil, fmt.Errorf("%w: xhttp transport is not supported by %s", ErrUnsupportedFeature, dialect)
	}

	if d.Tag == PlaceholderTag || tagTaken(existing, d.Tag, dialect) {
		d.Tag = AllocateName(d.Protocol, existing)
	}

	var content string
	switch dialect {
	case DialectXray:
		content, err = EncodeXray(d)
	case DialectMihomo:
		content, err = EncodeMihomo(d)
	default:
		return nil, fmt.Errorf("%w: unknown dialect %q", ErrUnsupportedFeature, dialect)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindSingleProxy, Name: d.Tag, Content: content}, nil
}

// tagTaken reports whether tag already occurs in existing, either as typed or
// in the escaped form the dialect writes it in.
func tagTaken(existing, tag string, dialect Dialect) bool {
	if strings.Contains(existing, tag) {
		return true
	}
	switch dialect {
	case DialectMihomo:
		return strings.Contains(existing, quoteMihomoName(tag))
	case DialectXray:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(tag); err != nil {
			return false
		}
		return strings.Contains(existing, strings.TrimSpace(buf.String()))
	}
	return false
}

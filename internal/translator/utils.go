package translator

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

// DecodeBase64 decodes subscription bodies and vmess payloads, which come in
// both alphabets and often without padding.
func DecodeBase64(s string) (string, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return "", nil
	}
	var err error
	for _, enc := range []*base64.Encoding{base64.RawStdEncoding, base64.RawURLEncoding} {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return string(b), nil
		}
	}
	return "", err
}

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// FixIllegalUrl undoes the line wrapping editors add to long pasted links.
func FixIllegalUrl(s string) string {
	return lineBreaks.Replace(strings.TrimSpace(s))
}

// queryParams is the flattened query of a share link; the first value wins.
type queryParams map[string]string

func flattenQuery(q url.Values) queryParams {
	params := make(queryParams, len(q))
	for k, v := range q {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func (q queryParams) get(keys ...string) string {
	for _, k := range keys {
		if v := q[k]; v != "" {
			return v
		}
	}
	return ""
}

// flag is true only for the literal strings "1" and "true".
func (q queryParams) flag(keys ...string) bool {
	for _, k := range keys {
		if v := q[k]; v == "1" || v == "true" {
			return true
		}
	}
	return false
}

func (q queryParams) number(key string) int {
	n, err := strconv.Atoi(q[key])
	if err != nil {
		return 0
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

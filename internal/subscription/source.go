package subscription

import (
	"context"
	"fmt"
	"strings"

	"xkeenui/internal/logger"
	"xkeenui/internal/translator"
)

// Source fetches the raw body of a subscription.
type Source interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

type Factory func() Source

var registry = make(map[string]Factory)

// Register makes a source available for a URL scheme.
func Register(scheme string, factory Factory) {
	registry[scheme] = factory
}

// Get returns a fresh source for scheme.
func Get(scheme string) (Source, error) {
	factory, ok := registry[scheme]
	if !ok {
		return nil, fmt.Errorf("no subscription source for %q", scheme)
	}
	return factory(), nil
}

func init() {
	Register("http", func() Source { return &HTTPSource{} })
	Register("https", func() Source { return &HTTPSource{} })
	Register("file", func() Source { return FileSource{} })
}

// Links fetches target with the source registered for its scheme and returns
// the proxy links found in the body. Paths without a scheme are read as files.
func Links(ctx context.Context, target string) ([]string, error) {
	scheme := "file"
	if i := strings.Index(target, "://"); i > 0 {
		scheme = strings.ToLower(target[:i])
	}
	src, err := Get(scheme)
	if err != nil {
		return nil, err
	}
	body, err := src.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(body), nil
}

// ExtractLinks finds proxy links in a subscription body, which is either plain
// text or a base64 blob of it.
func ExtractLinks(body []byte) []string {
	text := strings.TrimSpace(string(body))
	if links := translator.ExtractLinks(text); len(links) > 0 {
		return links
	}
	decoded, err := translator.DecodeBase64(strings.Join(strings.Fields(text), ""))
	if err != nil {
		logger.Log.Debugf("Subscription body is neither links nor base64: %v", err)
		return nil
	}
	return translator.ExtractLinks(decoded)
}

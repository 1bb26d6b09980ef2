package subscription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"xkeenui/internal/logger"
)

const DefaultTimeout = 120 * time.Second

// HTTPSource downloads a subscription over http(s).
type HTTPSource struct {
	Timeout time.Duration
	Proxy   string

	// Progress, when set, receives a copy of the body as it is downloaded.
	// total is -1 when the server sent no length.
	Progress func(total int64) io.Writer
}

func (s *HTTPSource) client() *http.Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	if s.Proxy != "" {
		if pURL, err := url.Parse(s.Proxy); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(pURL)}
			logger.Log.Debugf("Subscription fetch using proxy: %s", s.Proxy)
		}
	}
	return client
}

func (s *HTTPSource) Fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("bad subscription url: %w", err)
	}
	req.Header.Set("User-Agent", "xkeenui")

	logger.Log.Debugf("Fetching URL: %s", target)
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if s.Progress != nil {
		w = io.MultiWriter(&buf, s.Progress(resp.ContentLength))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return buf.Bytes(), nil
}

// Fetch downloads url and returns the links it lists.
func Fetch(ctx context.Context, target string, timeout time.Duration) ([]string, error) {
	body, err := (&HTTPSource{Timeout: timeout}).Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(body), nil
}

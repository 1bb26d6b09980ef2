package subscription

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileSource reads a subscription saved on disk.
type FileSource struct{}

func (FileSource) Fetch(_ context.Context, target string) ([]byte, error) {
	path := strings.TrimPrefix(target, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subscription file: %w", err)
	}
	return data, nil
}

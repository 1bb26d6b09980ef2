package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"xkeenui/internal/logger"
)

const (
	idleAfter     = 10 * time.Minute
	sweepInterval = 5 * time.Minute
	maxLineBytes  = 1 << 20
)

type entry struct {
	lines    []string
	size     int64
	offset   int64
	modTime  time.Time
	lastRead time.Time
}

// Cache keeps the rendered tail of each log file and reads only what was
// appended since the previous call.
type Cache struct {
	maxLines int
	offset   func() int

	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewCache returns a cache holding at most maxLines lines per file. offset
// supplies the current timezone shift in hours.
func NewCache(maxLines int, offset func() int) *Cache {
	if offset == nil {
		offset = func() int { return 0 }
	}
	return &Cache{
		maxLines: maxLines,
		offset:   offset,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

// Lines returns the rendered lines of the log at path, oldest first.
// A missing file yields no lines.
func (c *Cache) Lines(path string) []string {
	stat, err := os.Stat(path)
	if err != nil {
		return []string{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[path]
	if e == nil {
		e = &entry{}
		c.entries[path] = e
	}
	e.lastRead = c.now()

	if e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
		return clone(e.lines)
	}
	if stat.Size() < e.offset {
		e.offset = 0
		e.lines = nil
	}

	lines, pos, err := ReadFrom(path, e.offset, c.offset())
	if err != nil {
		logger.Log.Debugf("Reading %s: %v", path, err)
		return clone(e.lines)
	}
	e.lines = append(e.lines, lines...)
	if c.maxLines > 0 && len(e.lines) > c.maxLines {
		e.lines = append([]string(nil), e.lines[len(e.lines)-c.maxLines:]...)
	}
	e.offset = pos
	e.size = stat.Size()
	e.modTime = stat.ModTime()

	return clone(e.lines)
}

// Clear truncates the log at path and drops its cached lines.
func (c *Cache) Clear(path string) error {
	c.Forget(path)
	if err := os.Truncate(path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("truncate log: %w", err)
	}
	return nil
}

// Forget drops the cached lines of path.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Reset drops every cached file, e.g. after the timezone changed.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Run evicts files nobody read for a while until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

func (c *Cache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	evicted := 0
	for path, e := range c.entries {
		if now.Sub(e.lastRead) > idleAfter {
			delete(c.entries, path)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Log.Debugf("Evicted %d idle log caches", evicted)
	}
	return evicted
}

// ReadFrom renders the lines of path starting at byte offset and returns the
// offset just past what was read.
func ReadFrom(path string, offset int64, tz int) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, err
	}

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if html := RenderLine(AdjustTimezone(scanner.Text(), tz)); html != "" {
			out = append(out, html)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, offset, err
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return out, offset, err
	}
	return out, pos, nil
}

func clone(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return append([]string(nil), lines...)
}

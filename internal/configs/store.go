package configs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xkeenui/internal/config"
	"xkeenui/internal/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var (
	ErrDirNotFound     = errors.New("config directory not found")
	ErrNoConfigs       = errors.New("no config files found")
	ErrInvalidYAML     = errors.New("invalid YAML")
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrInvalidFilename = errors.New("invalid file name")
	ErrUnknownCore     = errors.New("unknown core")
	ErrUnknownAction   = errors.New("unknown action")
)

const listExt = ".lst"

// Document is one editable file as shown in the editor tabs.
type Document struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Layout describes where a core keeps its configuration.
type Layout struct {
	Core    string
	Dir     string
	Pattern string // glob for JSON cores, file name for YAML cores
	IsJSON  bool
}

// Store reads and writes the configuration documents of both cores.
type Store struct {
	layouts  map[string]Layout
	xkeenDir string
	db       *gorm.DB
	keep     int
}

// NewStore builds a store over the configured paths. db may be nil, in which
// case no revisions are recorded.
func NewStore(paths config.PathsConfig, db *gorm.DB, keep int) *Store {
	return &Store{
		layouts: map[string]Layout{
			"xray":   {Core: "xray", Dir: paths.XrayDir, Pattern: "*.json", IsJSON: true},
			"mihomo": {Core: "mihomo", Dir: paths.MihomoDir, Pattern: "config.yaml"},
		},
		xkeenDir: paths.XkeenDir,
		db:       db,
		keep:     keep,
	}
}

func (s *Store) layout(core string) (Layout, error) {
	l, ok := s.layouts[core]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownCore, core)
	}
	return l, nil
}

// List returns the core's config files followed by the xkeen list files.
func (s *Store) List(core string) ([]Document, error) {
	l, err := s.layout(core)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(l.Dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDirNotFound, l.Dir)
	}

	var docs []Document
	if l.IsJSON {
		files, err := filepath.Glob(filepath.Join(l.Dir, l.Pattern))
		if err != nil {
			return nil, fmt.Errorf("read config dir: %w", err)
		}
		sort.Strings(files)
		for _, file := range files {
			if doc, ok := readDocument(file, ".json"); ok {
				docs = append(docs, doc)
			}
		}
	} else {
		doc, ok := readDocument(filepath.Join(l.Dir, l.Pattern), "")
		if ok {
			doc.Name = "config"
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoConfigs, l.Dir)
	}

	if s.xkeenDir != "" {
		lists, _ := filepath.Glob(filepath.Join(s.xkeenDir, "*"+listExt))
		sort.Strings(lists)
		for _, file := range lists {
			if doc, ok := readDocument(file, listExt); ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

func readDocument(path, ext string) (Document, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warnf("Skipping unreadable config %s: %v", path, err)
		}
		return Document{}, false
	}
	filename := filepath.Base(path)
	return Document{
		Name:     strings.TrimSuffix(filename, ext),
		Filename: filename,
		Content:  string(content),
	}, true
}

// resolve validates the file name and returns the path it maps to.
func (s *Store) resolve(l Layout, filename string) (string, string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if strings.HasSuffix(filename, listExt) {
		if s.xkeenDir == "" {
			return "", "", fmt.Errorf("%w: no xkeen directory configured for %s", ErrInvalidFilename, filename)
		}
		return filepath.Join(s.xkeenDir, filename), filename, nil
	}
	if l.IsJSON {
		if !strings.HasSuffix(filename, ".json") {
			filename += ".json"
		}
	} else if filename != l.Pattern {
		return "", "", fmt.Errorf("%w: %s keeps its config in %s", ErrInvalidFilename, l.Core, l.Pattern)
	}
	return filepath.Join(l.Dir, filename), filename, nil
}

// Save writes content to a config file of core, recording the previous content.
func (s *Store) Save(ctx context.Context, core, filename, content string) error {
	l, err := s.layout(core)
	if err != nil {
		return err
	}
	path, filename, err := s.resolve(l, filename)
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(filename, listExt):
		content = strings.ReplaceAll(content, "\r\n", "\n")
	case l.IsJSON:
		if !json.Valid([]byte(stripJSONComments(content))) {
			return ErrInvalidJSON
		}
	default:
		var data any
		if err := yaml.Unmarshal([]byte(content), &data); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	}

	if prev, err := os.ReadFile(path); err == nil {
		s.recordRevision(ctx, core, filename, "save", string(prev))
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	logger.Log.Infof("Saved %s config %s (%d bytes)", core, filename, len(content))
	return nil
}

// Delete removes a config file of core, recording its content first.
func (s *Store) Delete(ctx context.Context, core, filename string) error {
	l, err := s.layout(core)
	if err != nil {
		return err
	}
	path, filename, err := s.resolve(l, filename)
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil {
		s.recordRevision(ctx, core, filename, "delete", string(prev))
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	logger.Log.Infof("Deleted %s config %s", core, filename)
	return nil
}

// Apply runs an editor action ("save" or "delete").
func (s *Store) Apply(ctx context.Context, core, action, filename, content string) error {
	switch action {
	case "save":
		return s.Save(ctx, core, filename, content)
	case "delete":
		return s.Delete(ctx, core, filename)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// stripJSONComments drops // and /* */ comments outside of strings; xray
// accepts commented JSON.
func stripJSONComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

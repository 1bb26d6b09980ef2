package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Paths      PathsConfig      `yaml:"paths"`
	Logs       LogsConfig       `yaml:"logs"`
	Translator TranslatorConfig `yaml:"translator"`
}

type ServerConfig struct {
	Listen      string        `yaml:"listen"`
	StaticDir   string        `yaml:"static_dir"`
	PollPeriod  time.Duration `yaml:"poll_period"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type DatabaseConfig struct {
	Path      string `yaml:"path"`
	Revisions int    `yaml:"revisions"` // kept per file
}

type PathsConfig struct {
	XrayDir    string `yaml:"xray_dir"`
	XrayAssets string `yaml:"xray_assets"`
	MihomoDir  string `yaml:"mihomo_dir"`
	XkeenDir   string `yaml:"xkeen_dir"`
	BinDir     string `yaml:"bin_dir"`
	S24Xray    string `yaml:"s24xray"`
	S99Xkeen   string `yaml:"s99xkeen"`
}

type LogsConfig struct {
	ErrorLog  string `yaml:"error_log"`
	AccessLog string `yaml:"access_log"`
	MaxLines  int    `yaml:"max_lines"`
	Display   int    `yaml:"display_lines"`
}

type TranslatorConfig struct {
	ValidateXray bool `yaml:"validate_xray"`
}

// Default returns the layout of an Entware install on a Keenetic router.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      ":1000",
			StaticDir:   "/opt/share/www/XKeen-UI",
			PollPeriod:  500 * time.Millisecond,
			ReadTimeout: 120 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/opt/share/www/XKeen-UI/xkeenui.db",
			Revisions: 20,
		},
		Paths: PathsConfig{
			XrayDir:    "/opt/etc/xray/configs",
			XrayAssets: "/opt/etc/xray/dat",
			MihomoDir:  "/opt/etc/mihomo",
			XkeenDir:   "/opt/etc/xkeen",
			BinDir:     "/opt/sbin",
			S24Xray:    "/opt/etc/init.d/S24xray",
			S99Xkeen:   "/opt/etc/init.d/S99xkeen",
		},
		Logs: LogsConfig{
			ErrorLog:  "/opt/var/log/xray/error.log",
			AccessLog: "/opt/var/log/xray/access.log",
			MaxLines:  5000,
			Display:   1000,
		},
	}
}

// Load reads the YAML config at path on top of the defaults.
// A missing file is not an error when path was not given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if cfg.Logs.MaxLines <= 0 {
		cfg.Logs.MaxLines = 5000
	}
	if cfg.Logs.Display <= 0 || cfg.Logs.Display > cfg.Logs.MaxLines {
		cfg.Logs.Display = cfg.Logs.MaxLines
	}
	if cfg.Server.PollPeriod <= 0 {
		cfg.Server.PollPeriod = 500 * time.Millisecond
	}
	if cfg.Database.Revisions < 0 {
		cfg.Database.Revisions = 0
	}

	return cfg, nil
}

// LogPath maps the file name used by the UI onto a log path.
func (c *Config) LogPath(file string) string {
	if file == "access.log" {
		return c.Logs.AccessLog
	}
	return c.Logs.ErrorLog
}

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"xkeenui/internal/config"
	"xkeenui/internal/logger"
)

const (
	Xray   = "xray"
	Mihomo = "mihomo"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidCore   = errors.New("invalid core")
	ErrCoreMismatch  = errors.New("core mismatch")
	ErrNoInitScript  = errors.New("init files not found")
)

// Status is the snapshot shown on the control panel.
type Status struct {
	Cores       []string `json:"cores"`
	CurrentCore string   `json:"currentCore"`
	Running     bool     `json:"running"`
	Status      string   `json:"status"`
}

// Controller drives the proxy cores through xkeen and the init scripts.
type Controller struct {
	paths    config.PathsConfig
	errorLog string
	runner   Runner

	// actions are serialized; two restarts racing leave xkeen half configured
	actionMu sync.Mutex

	mu      sync.RWMutex
	current string
}

func NewController(paths config.PathsConfig, errorLog string, runner Runner) *Controller {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Controller{paths: paths, errorLog: errorLog, runner: runner, current: Xray}
}

// Detect reads the active core from the init scripts and remembers it.
func (c *Controller) Detect() (string, error) {
	path := c.paths.S24Xray
	if _, err := os.Stat(path); err != nil {
		path = c.paths.S99Xkeen
		if _, err := os.Stat(path); err != nil {
			return c.Current(), ErrNoInitScript
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return c.Current(), fmt.Errorf("read init script: %w", err)
	}

	name := Xray
	if strings.Contains(string(content), clientLine(Mihomo)) {
		name = Mihomo
	}
	c.setCurrent(name)
	return name, nil
}

// Current returns the core last seen by Detect or switched to.
func (c *Controller) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Controller) setCurrent(name string) {
	c.mu.Lock()
	c.current = name
	c.mu.Unlock()
}

// Installed lists the cores with a binary in the bin directory.
func (c *Controller) Installed() []string {
	cores := []string{}
	for _, name := range []string{Xray, Mihomo} {
		if _, err := os.Stat(filepath.Join(c.paths.BinDir, name)); err == nil {
			cores = append(cores, name)
		}
	}
	return cores
}

// Running reports whether any core process exists.
func (c *Controller) Running(ctx context.Context) bool {
	return c.runner.Run(ctx, Command{Name: "pidof", Args: []string{Xray, Mihomo}}) == nil
}

func (c *Controller) Status(ctx context.Context) Status {
	if _, err := c.Detect(); err != nil {
		logger.Log.Debugf("Core detection: %v", err)
	}
	running := c.Running(ctx)
	st := Status{
		Cores:       c.Installed(),
		CurrentCore: c.Current(),
		Running:     running,
		Status:      "stopped",
	}
	if running {
		st.Status = "running"
	}
	return st
}

// Do performs a control action and returns a short message for the UI.
func (c *Controller) Do(ctx context.Context, action, core string) (string, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	log := logger.Named("core")
	log.Infof("Control action %s (core %q)", action, core)

	switch action {
	case "start", "stop", "hardRestart":
		arg := "-" + action
		if action == "hardRestart" {
			arg = "-restart"
		}
		c.truncateLog()
		return "OK", c.xkeen(ctx, arg)

	case "softRestart":
		if core != Xray && core != Mihomo {
			return "", fmt.Errorf("%w: %q", ErrInvalidCore, core)
		}
		if _, err := c.Detect(); err != nil {
			log.Debugf("Core detection: %v", err)
		}
		if c.Current() != core {
			return "", fmt.Errorf("%w: %s is active", ErrCoreMismatch, c.Current())
		}
		return "OK", c.softRestart(ctx, core)

	case "switchCore":
		if core != Xray && core != Mihomo {
			return "", fmt.Errorf("%w: %q", ErrInvalidCore, core)
		}
		if _, err := c.Detect(); err != nil {
			log.Debugf("Core detection: %v", err)
		}
		old := c.Current()
		if old == core {
			return "Already using " + core, nil
		}
		if err := c.xkeen(ctx, "-stop"); err != nil {
			log.Warnf("xkeen -stop: %v", err)
		}
		if err := c.rewriteClient(old, core); err != nil {
			return "", err
		}
		c.setCurrent(core)
		c.truncateLog()
		return "OK", c.xkeen(ctx, "-start")
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func (c *Controller) xkeen(ctx context.Context, arg string) error {
	out, closeLog := c.openLog()
	defer closeLog()
	return c.runner.Run(ctx, Command{Name: "xkeen", Args: []string{arg}, Output: out})
}

func (c *Controller) softRestart(ctx context.Context, core string) error {
	c.runner.Run(ctx, Command{Name: "killall", Args: []string{"-q", "-9", core}})

	out, closeLog := c.openLog()
	defer closeLog()
	return c.runner.Run(ctx, Command{
		Name:     filepath.Join(c.paths.BinDir, core),
		Env:      c.coreEnv(core),
		Output:   out,
		Detached: true,
	})
}

func (c *Controller) coreEnv(core string) []string {
	if core == Mihomo {
		return []string{"CLASH_HOME_DIR=" + c.paths.MihomoDir}
	}
	return []string{
		"XRAY_LOCATION_CONFDIR=" + c.paths.XrayDir,
		"XRAY_LOCATION_ASSET=" + c.paths.XrayAssets,
	}
}

func (c *Controller) rewriteClient(old, core string) error {
	data, err := os.ReadFile(c.paths.S99Xkeen)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.paths.S99Xkeen, err)
	}
	content := strings.Replace(string(data), clientLine(old), clientLine(core), 1)
	if err := os.WriteFile(c.paths.S99Xkeen, []byte(content), 0755); err != nil {
		return fmt.Errorf("write %s: %w", c.paths.S99Xkeen, err)
	}
	return nil
}

func (c *Controller) truncateLog() {
	if c.errorLog == "" {
		return
	}
	if err := os.Truncate(c.errorLog, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warnf("Failed to truncate %s: %v", c.errorLog, err)
	}
}

// openLog returns the error log for command output, or nil when it cannot be opened.
func (c *Controller) openLog() (io.Writer, func()) {
	if c.errorLog == "" {
		return nil, func() {}
	}
	f, err := os.OpenFile(c.errorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Warnf("Failed to open %s: %v", c.errorLog, err)
		return nil, func() {}
	}
	return f, func() { f.Close() }
}

func clientLine(core string) string {
	return `name_client="` + core + `"`
}

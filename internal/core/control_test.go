package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"xkeenui/internal/config"
	"xkeenui/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    []Command
	failName string
}

func (f *fakeRunner) Run(_ context.Context, c Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if c.Name == f.failName {
		return errors.New("exit status 1")
	}
	return nil
}

func (f *fakeRunner) names() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Name+" "+strings.Join(c.Args, " "))
	}
	return out
}

func setup(t *testing.T, client string) (*Controller, *fakeRunner, config.PathsConfig, string) {
	t.Helper()
	dir := t.TempDir()
	paths := config.PathsConfig{
		XrayDir:    filepath.Join(dir, "xray"),
		XrayAssets: filepath.Join(dir, "dat"),
		MihomoDir:  filepath.Join(dir, "mihomo"),
		BinDir:     filepath.Join(dir, "sbin"),
		S24Xray:    filepath.Join(dir, "S24xray"),
		S99Xkeen:   filepath.Join(dir, "S99xkeen"),
	}
	require.NoError(t, os.MkdirAll(paths.BinDir, 0755))
	require.NoError(t, os.WriteFile(paths.S99Xkeen, []byte("#!/bin/sh\nname_client=\""+client+"\"\n"), 0755))
	errorLog := filepath.Join(dir, "error.log")
	require.NoError(t, os.WriteFile(errorLog, []byte("old output\n"), 0644))

	runner := &fakeRunner{}
	return NewController(paths, errorLog, runner), runner, paths, errorLog
}

func TestDetect(t *testing.T) {
	c, _, paths, _ := setup(t, "mihomo")

	name, err := c.Detect()
	require.NoError(t, err)
	assert.Equal(t, Mihomo, name)

	// S24xray takes precedence when present.
	require.NoError(t, os.WriteFile(paths.S24Xray, []byte("name_client=\"xray\"\n"), 0755))
	name, err = c.Detect()
	require.NoError(t, err)
	assert.Equal(t, Xray, name)
}

func TestDetectWithoutInitScripts(t *testing.T) {
	c := NewController(config.PathsConfig{S24Xray: "/nonexistent/a", S99Xkeen: "/nonexistent/b"}, "", &fakeRunner{})
	_, err := c.Detect()
	assert.ErrorIs(t, err, ErrNoInitScript)
}

func TestStatus(t *testing.T) {
	c, runner, paths, _ := setup(t, "xray")
	require.NoError(t, os.WriteFile(filepath.Join(paths.BinDir, "xray"), nil, 0755))

	st := c.Status(context.Background())
	assert.Equal(t, []string{"xray"}, st.Cores)
	assert.Equal(t, Xray, st.CurrentCore)
	assert.True(t, st.Running)
	assert.Equal(t, "running", st.Status)

	runner.failName = "pidof"
	st = c.Status(context.Background())
	assert.False(t, st.Running)
	assert.Equal(t, "stopped", st.Status)
}

func TestDoXkeenActions(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"start", "xkeen -start"},
		{"stop", "xkeen -stop"},
		{"hardRestart", "xkeen -restart"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			c, runner, _, errorLog := setup(t, "xray")

			msg, err := c.Do(context.Background(), tt.action, "")
			require.NoError(t, err)
			assert.Equal(t, "OK", msg)
			assert.Equal(t, []string{tt.want}, runner.names())

			data, err := os.ReadFile(errorLog)
			require.NoError(t, err)
			assert.Empty(t, data, "error log is truncated before the command")
		})
	}
}

func TestDoSwitchCore(t *testing.T) {
	c, runner, paths, _ := setup(t, "xray")

	msg, err := c.Do(context.Background(), "switchCore", "mihomo")
	require.NoError(t, err)
	assert.Equal(t, "OK", msg)
	assert.Equal(t, []string{"xkeen -stop", "xkeen -start"}, runner.names())
	assert.Equal(t, Mihomo, c.Current())

	data, err := os.ReadFile(paths.S99Xkeen)
	require.NoError(t, err)
	assert.Contains(t, string(data), `name_client="mihomo"`)
	assert.NotContains(t, string(data), `name_client="xray"`)

	msg, err = c.Do(context.Background(), "switchCore", "mihomo")
	require.NoError(t, err)
	assert.Equal(t, "Already using mihomo", msg)
}

func TestDoSoftRestart(t *testing.T) {
	c, runner, paths, _ := setup(t, "mihomo")

	_, err := c.Do(context.Background(), "softRestart", "mihomo")
	require.NoError(t, err)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "killall -q -9 mihomo", runner.names()[0])

	start := runner.calls[1]
	assert.Equal(t, filepath.Join(paths.BinDir, "mihomo"), start.Name)
	assert.True(t, start.Detached)
	assert.Equal(t, []string{"CLASH_HOME_DIR=" + paths.MihomoDir}, start.Env)

	_, err = c.Do(context.Background(), "softRestart", "xray")
	assert.ErrorIs(t, err, ErrCoreMismatch)
}

func TestDoRejects(t *testing.T) {
	c, runner, _, _ := setup(t, "xray")

	_, err := c.Do(context.Background(), "reboot", "xray")
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = c.Do(context.Background(), "switchCore", "sing-box")
	assert.ErrorIs(t, err, ErrInvalidCore)

	_, err = c.Do(context.Background(), "softRestart", "")
	assert.ErrorIs(t, err, ErrInvalidCore)

	assert.Empty(t, runner.calls)
}

func TestDoLogsDetectionFailure(t *testing.T) {
	c, runner, paths, _ := setup(t, "xray")
	_, err := c.Detect()
	require.NoError(t, err)
	require.NoError(t, os.Remove(paths.S99Xkeen))

	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	t.Cleanup(func() { logger.Log = prev })

	msg, err := c.Do(context.Background(), "switchCore", Xray)
	require.NoError(t, err)
	assert.Equal(t, "Already using xray", msg)
	assert.Empty(t, runner.calls)

	_, err = c.Do(context.Background(), "softRestart", Xray)
	require.NoError(t, err)

	detection := logs.FilterMessageSnippet("Core detection")
	assert.Equal(t, 2, detection.Len())
	for _, entry := range detection.All() {
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Contains(t, entry.Message, ErrNoInitScript.Error())
	}
}

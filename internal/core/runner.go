package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"xkeenui/internal/logger"
)

// Command is one external program invocation.
type Command struct {
	Name   string
	Args   []string
	Env    []string // appended to the panel environment
	Output io.Writer

	// Detached commands run as the proxy group with a raised file limit and
	// are not waited for.
	Detached bool
}

// Runner executes commands. The exec backed implementation is ExecRunner.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	if c.Detached {
		return startDetached(c)
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Output != nil {
		cmd.Stdout, cmd.Stderr = c.Output, c.Output
	}
	logger.Log.Debugf("exec %s %v", c.Name, c.Args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func startDetached(c Command) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	if c.Output != nil {
		cmd.Stdout, cmd.Stderr = c.Output, c.Output
	}
	configureCoreCommand(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Name, err)
	}
	if err := raiseFileLimit(cmd.Process.Pid); err != nil {
		logger.Log.Warnf("Failed to raise file limit of %s: %v", c.Name, err)
	}
	go cmd.Wait()
	return nil
}

//go:build !linux

package core

import "os/exec"

func configureCoreCommand(cmd *exec.Cmd) {}

func raiseFileLimit(pid int) error { return nil }

//go:build linux

package core

import (
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// proxyGID is the group xkeen's iptables rules exempt from redirection.
const proxyGID = 11111

func configureCoreCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Gid: proxyGID},
	}
}

func raiseFileLimit(pid int) error {
	limit := uint64(10000)
	if runtime.GOARCH == "arm64" {
		limit = 40000
	}
	return unix.Prlimit(pid, unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: limit, Max: limit}, nil)
}

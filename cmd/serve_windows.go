//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

func setDaemonAttrs(_ *exec.Cmd) {}

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// Windows cannot deliver SIGTERM to another process; stop falls back to kill.
func sigTERM() syscall.Signal { return syscall.SIGKILL }

func sigKILL() syscall.Signal { return syscall.SIGKILL }

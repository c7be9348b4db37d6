package service

import (
	"fmt"
	"os"
	"syscall"
)

// SendRearmSignal delivers the login re-arm trigger to a running daemon.
// The daemon applies it between ticks, so it never races a transition.
func SendRearmSignal() error {
	pid := DaemonPid()
	if pid == 0 {
		return fmt.Errorf("daemon not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	return process.Signal(syscall.SIGUSR1)
}

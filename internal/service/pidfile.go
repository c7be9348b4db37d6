package service

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

var pidFile = "/var/run/tokenlock.pid"

func CreatePidFile() error {
	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(pidFile, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func RemovePidFile() error {
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(pidFile)
}

func readPidFile() (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// DaemonPid returns the pid of a live daemon, or 0 with a stale PID file
// cleaned up.
func DaemonPid() int {
	pid, err := readPidFile()
	if err != nil {
		return 0
	}
	if !isProcessRunning(pid) {
		os.Remove(pidFile)
		return 0
	}
	return pid
}

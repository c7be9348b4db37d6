package notify

import (
	"os/exec"
	"strings"
)

// Handle identifies an on-screen notification so a later message can
// replace it instead of stacking a new one. Empty means no notification
// is in flight.
type Handle string

// Notifier delivers desktop notifications. Delivery is best-effort with
// no guarantee; callers ignore failures.
type Notifier interface {
	// Show displays a notification, replacing the one identified by
	// replace when it is non-empty, and returns the handle of the
	// notification shown.
	Show(title, message string, replace Handle) (Handle, error)
}

// CommandNotifier shells out to notify-send. The -p flag prints the server
// notification id, which becomes the replace handle for the next update.
type CommandNotifier struct{}

func (CommandNotifier) Show(title, message string, replace Handle) (Handle, error) {
	args := []string{"-p", "-e"}
	if replace != "" {
		args = append(args, "--replace-id="+string(replace))
	}
	args = append(args, title, message)

	out, err := exec.Command("notify-send", args...).Output()
	if err != nil {
		return "", err
	}
	return Handle(strings.TrimSpace(string(out))), nil
}

// Noop discards notifications, for headless or service contexts.
type Noop struct{}

func (Noop) Show(title, message string, replace Handle) (Handle, error) {
	return "", nil
}

package locker

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// Desktop identifies a desktop environment for lock-command dispatch.
type Desktop string

const (
	DesktopGNOME    Desktop = "gnome"
	DesktopKDE      Desktop = "kde"
	DesktopXFCE     Desktop = "xfce"
	DesktopCinnamon Desktop = "cinnamon"
	DesktopMATE     Desktop = "mate"
	DesktopLXDE     Desktop = "lxde"
	DesktopSway     Desktop = "sway"
	DesktopUnknown  Desktop = ""
)

// Locker locks the user session. Implementations are best-effort.
type Locker interface {
	Lock() error
}

// commandLocker runs a fixed shell command to lock the session.
type commandLocker struct {
	name string
	args []string
}

func (c commandLocker) Lock() error {
	if err := exec.Command(c.name, c.args...).Run(); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

// Command builds a Locker around an arbitrary lock command, used for the
// config-level override.
func Command(name string, args ...string) Locker {
	return commandLocker{name: name, args: args}
}

// lockTable maps each recognized desktop to its lock command. Adding an
// environment is one more row, not another branch in a conditional chain.
var lockTable = map[Desktop]Locker{
	DesktopGNOME:    commandLocker{name: "gnome-screensaver-command", args: []string{"-l"}},
	DesktopKDE:      commandLocker{name: "qdbus-qt6", args: []string{"org.freedesktop.ScreenSaver", "/ScreenSaver", "Lock"}},
	DesktopXFCE:     commandLocker{name: "xflock4"},
	DesktopCinnamon: commandLocker{name: "cinnamon-screensaver-command", args: []string{"-l"}},
	DesktopMATE:     commandLocker{name: "mate-screensaver-command", args: []string{"-l"}},
	DesktopLXDE:     commandLocker{name: "lxlock"},
	DesktopSway:     commandLocker{name: "swaylock"},
}

// defaultLocker is the session-manager fallback used when the desktop is
// unrecognized or its command fails.
var defaultLocker Locker = commandLocker{name: "loginctl", args: []string{"lock-session"}}

// desktopOrder fixes the substring-check order against XDG_CURRENT_DESKTOP.
var desktopOrder = []Desktop{
	DesktopGNOME, DesktopKDE, DesktopXFCE, DesktopCinnamon, DesktopMATE, DesktopLXDE, DesktopSway,
}

// Detect inspects the environment and returns the current desktop, or
// DesktopUnknown if none is recognized. A Wayland display with no matching
// desktop identifier is treated as sway.
func Detect() Desktop {
	current := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	for _, d := range desktopOrder {
		if strings.Contains(current, string(d)) {
			return d
		}
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return DesktopSway
	}
	return DesktopUnknown
}

// ForDesktop returns the Locker for the given desktop, falling back to the
// session-manager default for unrecognized environments.
func ForDesktop(d Desktop) Locker {
	if l, ok := lockTable[d]; ok {
		return l
	}
	return defaultLocker
}

// SessionLocker locks via the detected desktop's command with a single
// fallback to the default. Lock failures are logged, never propagated:
// once the lock intent is expressed the caller's state moves on regardless.
type SessionLocker struct{}

func (SessionLocker) Lock() error {
	desktop := Detect()
	if err := ForDesktop(desktop).Lock(); err != nil {
		log.Printf("lock command failed for desktop %q: %v, trying fallback", desktop, err)
		if err := defaultLocker.Lock(); err != nil {
			log.Printf("fallback lock command failed: %v", err)
		}
	}
	return nil
}

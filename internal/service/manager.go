package service

import (
	"fmt"
	"os"

	"github.com/kardianos/service"

	"tokenlock/internal/config"
)

// ServiceManager installs and controls tokenlock under the platform's
// service supervisor (systemd, launchd).
type ServiceManager struct {
	service service.Service
	daemon  *Daemon
}

type program struct {
	daemon *Daemon
}

func (p *program) Start(s service.Service) error {
	return p.daemon.Start()
}

func (p *program) Stop(s service.Service) error {
	return p.daemon.Stop()
}

func NewServiceManager(cfg *config.Config) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	svcConfig := &service.Config{
		Name:        "com.tokenlock.daemon",
		DisplayName: "Tokenlock Presence Monitor",
		Description: "Locks the session when the USB security token is removed",
		Executable:  execPath,
		Arguments:   []string{"service", "run-daemon"},
		Option: service.KeyValue{
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}

	daemon := NewDaemon(cfg)
	svc, err := service.New(&program{daemon: daemon}, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &ServiceManager{service: svc, daemon: daemon}, nil
}

func (sm *ServiceManager) Install() error {
	return sm.service.Install()
}

func (sm *ServiceManager) Uninstall() error {
	return sm.service.Uninstall()
}

func (sm *ServiceManager) Start() error {
	return sm.service.Start()
}

func (sm *ServiceManager) Stop() error {
	return sm.service.Stop()
}

func (sm *ServiceManager) Restart() error {
	return sm.service.Restart()
}

func (sm *ServiceManager) Status() (string, error) {
	status, err := sm.service.Status()
	if err != nil {
		return "Unknown", err
	}

	switch status {
	case service.StatusRunning:
		return "Running", nil
	case service.StatusStopped:
		return "Stopped", nil
	default:
		return "Unknown", nil
	}
}

// Run hands control to the service supervisor; used by the run-daemon
// subcommand.
func (sm *ServiceManager) Run() error {
	return sm.service.Run()
}

// GetServiceConfigPath returns the platform-specific service config path.
func GetServiceConfigPath() string {
	switch service.Platform() {
	case "linux-systemd":
		return "/etc/systemd/system/com.tokenlock.daemon.service"
	case "darwin-launchd":
		return "/Library/LaunchDaemons/com.tokenlock.daemon.plist"
	default:
		return "Unknown platform"
	}
}

package system

import (
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Info is a snapshot of the host for the status command.
type Info struct {
	Hostname      string
	OS            string
	Platform      string
	UptimeSeconds uint64
	MemoryPercent float64
}

// GetInfo gathers host information, leaving fields zero on partial failure.
func GetInfo() Info {
	var info Info

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.OS = hostInfo.OS
		info.Platform = hostInfo.Platform
		info.UptimeSeconds = hostInfo.Uptime
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		info.MemoryPercent = memInfo.UsedPercent
	}

	return info
}

// FindDaemon looks for a running tokenlock daemon process other than the
// calling process and returns its pid, or 0 when none is running.
func FindDaemon(selfPid int32) (int32, error) {
	processes, err := process.Processes()
	if err != nil {
		return 0, err
	}

	for _, proc := range processes {
		if proc.Pid == selfPid {
			continue
		}
		cmdline, err := proc.Cmdline()
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, "tokenlock") && strings.Contains(cmdline, "run-daemon") {
			return proc.Pid, nil
		}
	}
	return 0, nil
}

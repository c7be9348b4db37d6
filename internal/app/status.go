package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tokenlock/internal/device"
	"tokenlock/internal/service"
	"tokenlock/internal/system"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "status",
		Short:                 "Show monitor and system status",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Tokenlock Status")
			fmt.Println("================")

			fmt.Println("\nToken Detection:")
			known := device.NewKnownTokenSet(cfg.VendorID, cfg.ProductIDs)
			detector := device.NewDetector(known, nil)
			present, err := detector.TokenPresent()
			switch {
			case errors.Is(err, device.ErrUnavailable):
				fmt.Println("  Presence: unknown (USB listing unavailable)")
			case err != nil:
				fmt.Printf("  Presence: error (%v)\n", err)
			default:
				fmt.Printf("  Token present: %t\n", present)
				if count, err := detector.CountTokens(); err == nil {
					fmt.Printf("  Known tokens attached: %d\n", count)
				}
			}
			fmt.Printf("  Accepted ids: vendor %s, products %v\n", cfg.VendorID, cfg.ProductIDs)
			fmt.Printf("  Grace period: %d seconds\n", cfg.GraceSeconds)

			fmt.Println("\nDaemon:")
			if pid := service.DaemonPid(); pid != 0 {
				fmt.Printf("  Running (pid %d)\n", pid)
			} else if pid, err := system.FindDaemon(int32(os.Getpid())); err == nil && pid != 0 {
				fmt.Printf("  Running (pid %d, no PID file)\n", pid)
			} else {
				fmt.Println("  Not running")
			}

			fmt.Println("\nSystem:")
			info := system.GetInfo()
			fmt.Printf("  Hostname: %s\n", info.Hostname)
			fmt.Printf("  Platform: %s (%s)\n", info.Platform, info.OS)
			fmt.Printf("  Uptime: %ds\n", info.UptimeSeconds)
			fmt.Printf("  Memory usage: %.1f%%\n", info.MemoryPercent)

			return nil
		},
	}
}

func NewDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached USB devices and known tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			known := device.NewKnownTokenSet(cfg.VendorID, cfg.ProductIDs)
			detector := device.NewDetector(known, nil)

			devices, err := detector.Snapshot()
			if err != nil {
				return err
			}

			accepted := make(map[device.DeviceID]bool)
			if tokens, err := detector.KnownTokens(); err == nil {
				for _, t := range tokens {
					accepted[t] = true
				}
			}

			fmt.Println("Attached USB devices:")
			for _, dev := range devices {
				marker := ""
				if accepted[dev] {
					marker = "  <- known token"
				}
				fmt.Printf("  %s%s\n", dev, marker)
			}
			if len(devices) == 0 {
				fmt.Println("  (none parsed)")
			}
			return nil
		},
	}
}

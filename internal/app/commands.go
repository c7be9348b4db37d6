package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tokenlock/internal/config"
	"tokenlock/internal/history"
	"tokenlock/internal/service"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func NewRunCommand() *cobra.Command {
	var grace int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the presence monitor in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if grace > 0 {
				cfg.GraceSeconds = grace
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return service.NewDaemon(cfg).RunForeground()
		},
	}

	cmd.Flags().IntVarP(&grace, "grace", "g", 0, "override the grace period in seconds")
	return cmd
}

func NewRearmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rearm",
		Short: "Re-arm a running daemon after login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.SendRearmSignal(); err != nil {
				return err
			}
			fmt.Println("Re-arm signal sent")
			return nil
		},
	}
}

func NewHistoryCommand() *cobra.Command {
	var limit int
	var summary bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded presence events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if summary {
				counts, err := store.CountByEvent()
				if err != nil {
					return err
				}
				for event, n := range counts {
					fmt.Printf("%-12s %d\n", event, n)
				}
				return nil
			}

			events, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No presence events recorded")
				return nil
			}
			for _, e := range events {
				fmt.Printf("%s  %-12s countdown=%d\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Event, e.Countdown)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().BoolVar(&summary, "summary", false, "show per-event counts instead")
	return cmd
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the active configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				fmt.Printf("Vendor ID:      %s\n", cfg.VendorID)
				fmt.Printf("Product IDs:    %v\n", cfg.ProductIDs)
				fmt.Printf("Grace period:   %d seconds\n", cfg.GraceSeconds)
				fmt.Printf("Poll interval:  %d seconds\n", cfg.PollIntervalSeconds)
				fmt.Printf("Notifications:  %t\n", cfg.Notifications)
				fmt.Printf("History DB:     %s\n", cfg.HistoryDB)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-grace [seconds]",
			Short: "Set the grace period",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				seconds, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid grace period %q", args[0])
				}
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				cfg.GraceSeconds = seconds
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Printf("Grace period set to %d seconds\n", seconds)
				return cfg.Save()
			},
		},
		&cobra.Command{
			Use:   "set-vendor [vendor-id]",
			Short: "Set the accepted USB vendor id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				cfg.VendorID = args[0]
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Printf("Vendor id set to %s\n", args[0])
				return cfg.Save()
			},
		},
		&cobra.Command{
			Use:   "add-product [product-id]",
			Short: "Add an accepted USB product id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				for _, existing := range cfg.ProductIDs {
					if existing == args[0] {
						fmt.Printf("%s is already an accepted product id\n", args[0])
						return nil
					}
				}
				cfg.ProductIDs = append(cfg.ProductIDs, args[0])
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Printf("Added product id %s\n", args[0])
				return cfg.Save()
			},
		},
		&cobra.Command{
			Use:   "remove-product [product-id]",
			Short: "Remove an accepted USB product id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				kept := cfg.ProductIDs[:0]
				for _, p := range cfg.ProductIDs {
					if p != args[0] {
						kept = append(kept, p)
					}
				}
				cfg.ProductIDs = kept
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Printf("Removed product id %s\n", args[0])
				return cfg.Save()
			},
		},
	)

	return cmd
}

func NewServiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the tokenlock system service",
	}

	withManager := func(run func(*service.ServiceManager) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sm, err := service.NewServiceManager(cfg)
			if err != nil {
				return err
			}
			return run(sm)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install the system service",
			RunE: withManager(func(sm *service.ServiceManager) error {
				if err := sm.Install(); err != nil {
					return err
				}
				fmt.Println("Service installed:", service.GetServiceConfigPath())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Uninstall the system service",
			RunE: withManager(func(sm *service.ServiceManager) error {
				if err := sm.Uninstall(); err != nil {
					return err
				}
				fmt.Println("Service uninstalled")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the service",
			RunE:  withManager((*service.ServiceManager).Start),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the service",
			RunE:  withManager((*service.ServiceManager).Stop),
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the service",
			RunE:  withManager((*service.ServiceManager).Restart),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show service status",
			RunE: withManager(func(sm *service.ServiceManager) error {
				status, err := sm.Status()
				if err != nil {
					fmt.Println("Status: Unknown")
					return nil
				}
				fmt.Println("Status:", status)
				return nil
			}),
		},
		&cobra.Command{
			Use:    "run-daemon",
			Short:  "Run under the service supervisor",
			Hidden: true,
			RunE:   withManager((*service.ServiceManager).Run),
		},
	)

	return cmd
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenlock/internal/config"
	"tokenlock/internal/device"
	"tokenlock/internal/history"
	"tokenlock/internal/locker"
	"tokenlock/internal/monitor"
	"tokenlock/internal/notify"
)

// Daemon wires the presence monitor to its collaborators and to the
// process environment: PID file, shutdown signals and the SIGUSR1 re-arm
// trigger delivered by a login hook.
type Daemon struct {
	cfg     *config.Config
	mon     *monitor.Monitor
	store   *history.Store
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewDaemon(cfg *config.Config) *Daemon {
	known := device.NewKnownTokenSet(cfg.VendorID, cfg.ProductIDs)
	detector := device.NewDetector(known, nil)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notifications {
		notifier = notify.CommandNotifier{}
	}

	d := &Daemon{cfg: cfg, done: make(chan struct{})}

	// History is best-effort; the monitor runs without it.
	var sink monitor.EventSink
	if store, err := history.Open(cfg.HistoryDB); err != nil {
		log.Printf("presence history disabled: %v", err)
	} else {
		d.store = store
		sink = store
	}

	d.mon = monitor.New(detector, locker.SessionLocker{}, notifier, monitor.Options{
		GraceSeconds: cfg.GraceSeconds,
		PollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		Events:       sink,
	})
	return d
}

// Monitor exposes the underlying presence monitor, mainly for status output.
func (d *Daemon) Monitor() *monitor.Monitor {
	return d.mon
}

// Start launches the poll loop and signal listeners in the background,
// for use under a service manager.
func (d *Daemon) Start() error {
	if d.running {
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	log.Println("tokenlock daemon starting...")

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if err := CreatePidFile(); err != nil {
		log.Printf("Warning: could not create PID file: %v", err)
	}

	go d.listenRearm(ctx)
	go func() {
		defer close(d.done)
		if err := d.mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("monitor loop ended: %v", err)
		}
	}()

	log.Println("tokenlock daemon started")
	return nil
}

// Stop requests a cooperative shutdown and waits for the loop to finish
// its current tick.
func (d *Daemon) Stop() error {
	if !d.running {
		return fmt.Errorf("daemon not running")
	}
	log.Println("stopping tokenlock daemon...")
	d.cancel()
	<-d.done
	d.running = false

	RemovePidFile()
	if d.store != nil {
		d.store.Close()
	}
	return nil
}

// RunForeground runs the monitor in the calling goroutine until SIGTERM or
// interrupt, with SIGUSR1 re-arming the monitor.
func (d *Daemon) RunForeground() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := CreatePidFile(); err != nil {
		log.Printf("Warning: could not create PID file: %v", err)
	}
	defer RemovePidFile()
	if d.store != nil {
		defer d.store.Close()
	}

	go d.listenRearm(ctx)

	if err := d.mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// listenRearm forwards SIGUSR1, sent by the login hook, to the monitor's
// re-arm operation.
func (d *Daemon) listenRearm(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			log.Println("re-arm signal received")
			d.mon.ResetFromLogin()
		}
	}
}

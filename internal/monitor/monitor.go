package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tokenlock/internal/notify"
)

const notificationTitle = "Token Lock Service"

// Reading is the result of one presence poll. Unknown means the listing
// could not be obtained; it never advances the countdown and never locks.
type Reading int

const (
	Absent Reading = iota
	Present
	Unknown
)

func (r Reading) String() string {
	switch r {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// State is the monitor's position in the presence state machine.
type State int

const (
	StatePresent State = iota
	StateAbsentCounting
	StateLocked
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateAbsentCounting:
		return "absent-counting"
	default:
		return "locked"
	}
}

// Event classifies a state transition for the history log.
type Event string

const (
	EventRemoved    Event = "removed"
	EventReinserted Event = "reinserted"
	EventLocked     Event = "locked"
	EventRearmed    Event = "rearmed"
)

// Detector answers whether a known token is currently attached.
type Detector interface {
	TokenPresent() (bool, error)
}

// Locker locks the user session.
type Locker interface {
	Lock() error
}

// EventSink receives transition events. Recording must never block the
// monitor for long; failures are the sink's problem.
type EventSink interface {
	Record(event Event, countdown int)
}

// Options configures a Monitor. Zero values take the defaults: a 10 second
// grace period and a 1 second poll interval.
type Options struct {
	GraceSeconds int
	PollInterval time.Duration
	Events       EventSink
}

// Monitor owns the presence state machine. All state is guarded by mu so
// the asynchronous re-arm trigger applies atomically between ticks and can
// never race an in-progress transition.
type Monitor struct {
	detector Detector
	locker   Locker
	notifier notify.Notifier
	events   EventSink
	interval time.Duration

	mu               sync.Mutex
	state            State
	present          bool
	previousPresent  bool
	countdown        int
	graceSeconds     int
	activeMonitor    bool
	lastNotification notify.Handle
}

// New builds a Monitor and performs the initial poll to establish the
// starting state: present if a token is detected, otherwise counting
// from zero.
func New(detector Detector, locker Locker, notifier notify.Notifier, opts Options) *Monitor {
	if opts.GraceSeconds <= 0 {
		opts.GraceSeconds = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}

	m := &Monitor{
		detector:      detector,
		locker:        locker,
		notifier:      notifier,
		events:        opts.Events,
		interval:      opts.PollInterval,
		graceSeconds:  opts.GraceSeconds,
		activeMonitor: true,
	}

	m.present = m.Poll() == Present
	m.previousPresent = m.present
	if m.present {
		m.state = StatePresent
	} else {
		m.state = StateAbsentCounting
	}
	return m
}

// Poll asks the detector for current presence, mapping a detection failure
// to Unknown rather than absent so an unreadable listing cannot lock the
// session.
func (m *Monitor) Poll() Reading {
	present, err := m.detector.TokenPresent()
	if err != nil {
		log.Printf("presence poll failed: %v", err)
		return Unknown
	}
	if present {
		return Present
	}
	return Absent
}

// Tick feeds one reading through the state machine.
func (m *Monitor) Tick(r Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r {
	case Unknown:
		// Uncertain reading: no countdown, no lock, no edge detection.
		return
	case Present:
		if !m.previousPresent {
			m.reinserted()
		}
		m.present = true
		m.previousPresent = true
		m.state = StatePresent
	case Absent:
		m.present = false
		if m.activeMonitor {
			m.absentTick()
		}
		m.previousPresent = false
	}
}

// absentTick advances the countdown by one second of observed absence and
// locks once the grace period is strictly exceeded.
func (m *Monitor) absentTick() {
	if m.countdown == 0 {
		m.lastNotification = ""
		m.showNotification("Security token removed.")
		m.record(EventRemoved)
	} else {
		m.showNotification(fmt.Sprintf("Token absent for %d of %d seconds.", m.countdown, m.graceSeconds))
	}
	m.countdown++

	if m.countdown > m.graceSeconds {
		m.lock()
	} else {
		m.state = StateAbsentCounting
	}
}

// lock expresses the lock intent. A failing lock command is logged but the
// machine still enters the locked state: intent was expressed even if the
// mechanism failed.
func (m *Monitor) lock() {
	if err := m.locker.Lock(); err != nil {
		log.Printf("session lock failed: %v", err)
	}
	m.showNotification("Token absent beyond grace period, locking session.")
	m.record(EventLocked)
	m.activeMonitor = false
	m.countdown = 0
	m.lastNotification = ""
	m.state = StateLocked
}

func (m *Monitor) reinserted() {
	m.countdown = 0
	m.showNotification("Security token reinserted.")
	m.lastNotification = ""
	m.activeMonitor = true
	m.record(EventReinserted)
}

// ResetFromLogin re-arms the monitor after a login event: countdown
// cleared, monitoring re-activated, and an immediate re-poll so a token
// already absent at login begins counting on the very next tick. Safe to
// call from any goroutine; it is serialized against in-flight ticks.
func (m *Monitor) ResetFromLogin() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countdown = 0
	m.lastNotification = ""
	m.activeMonitor = true

	m.present = m.Poll() == Present
	m.previousPresent = m.present
	if m.present {
		m.state = StatePresent
	} else {
		m.state = StateAbsentCounting
	}
	m.record(EventRearmed)
}

// Run drives the poll loop: one poll-decide-act cycle per tick until the
// context is cancelled. A single iteration's failure never ends the loop;
// cancellation is checked only at tick boundaries.
func (m *Monitor) Run(ctx context.Context) error {
	log.Printf("presence monitor started (grace %ds, interval %v)", m.graceSeconds, m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("presence monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(m.Poll())
		}
	}
}

func (m *Monitor) showNotification(message string) {
	handle, err := m.notifier.Show(notificationTitle, message, m.lastNotification)
	if err != nil {
		// Notification delivery is advisory.
		return
	}
	m.lastNotification = handle
}

func (m *Monitor) record(event Event) {
	if m.events != nil {
		m.events.Record(event, m.countdown)
	}
}

// State returns the machine's current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Countdown returns the consecutive absent-while-active tick count.
func (m *Monitor) Countdown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countdown
}

// Active reports whether the monitor is armed. False means a lock was
// issued and no re-arm has occurred since.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeMonitor
}

// TokenPresent returns the most recent poll's result.
func (m *Monitor) TokenPresent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

package monitor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"tokenlock/internal/notify"
)

// fakeDetector replays a scripted sequence of readings, holding the last
// one once the script is exhausted.
type fakeDetector struct {
	states []Reading
	index  int
}

func (f *fakeDetector) TokenPresent() (bool, error) {
	state := f.states[f.index]
	if f.index < len(f.states)-1 {
		f.index++
	}
	switch state {
	case Present:
		return true, nil
	case Absent:
		return false, nil
	default:
		return false, errors.New("listing command failed")
	}
}

type fakeLocker struct {
	calls int
	fail  bool
}

func (f *fakeLocker) Lock() error {
	f.calls++
	if f.fail {
		return errors.New("lock command not found")
	}
	return nil
}

type fakeNotifier struct {
	messages []string
	replaces []notify.Handle
	next     int
}

func (f *fakeNotifier) Show(title, message string, replace notify.Handle) (notify.Handle, error) {
	f.messages = append(f.messages, message)
	f.replaces = append(f.replaces, replace)
	f.next++
	return notify.Handle(fmt.Sprintf("%d", f.next)), nil
}

type fakeSink struct {
	events []Event
}

func (f *fakeSink) Record(event Event, countdown int) {
	f.events = append(f.events, event)
}

func repeat(r Reading, n int) []Reading {
	states := make([]Reading, n)
	for i := range states {
		states[i] = r
	}
	return states
}

func script(parts ...[]Reading) *fakeDetector {
	var states []Reading
	for _, p := range parts {
		states = append(states, p...)
	}
	return &fakeDetector{states: states}
}

func tick(m *Monitor, n int) {
	for i := 0; i < n; i++ {
		m.Tick(m.Poll())
	}
}

func TestLockAfterGracePeriod(t *testing.T) {
	det := script([]Reading{Present}, repeat(Absent, 12))
	locker := &fakeLocker{}
	m := New(det, locker, notify.Noop{}, Options{GraceSeconds: 10})

	if m.State() != StatePresent {
		t.Fatalf("initial state = %v, want present", m.State())
	}

	tick(m, 10)
	if locker.calls != 0 {
		t.Fatalf("lock invoked after %d absent ticks, want none before the 11th", 10)
	}

	tick(m, 1) // 11th absent tick exceeds the 10 second grace
	if locker.calls != 1 {
		t.Fatalf("lock calls after 11th absent tick = %d, want 1", locker.calls)
	}
	if m.Active() {
		t.Error("monitor still active after lock")
	}
	if m.State() != StateLocked {
		t.Errorf("state = %v, want locked", m.State())
	}
	if m.Countdown() != 0 {
		t.Errorf("countdown = %d, want 0 after lock", m.Countdown())
	}

	tick(m, 1) // 12th absent tick is a no-op once locked
	if locker.calls != 1 {
		t.Errorf("lock calls = %d, want exactly 1", locker.calls)
	}
}

func TestReinsertionCancelsCountdown(t *testing.T) {
	det := script([]Reading{Present}, repeat(Absent, 5), []Reading{Present})
	locker := &fakeLocker{}
	notifier := &fakeNotifier{}
	m := New(det, locker, notifier, Options{GraceSeconds: 10})

	tick(m, 6)

	if locker.calls != 0 {
		t.Errorf("lock invoked %d times, want 0", locker.calls)
	}
	if m.Countdown() != 0 {
		t.Errorf("countdown = %d, want 0 after reinsertion", m.Countdown())
	}
	if m.State() != StatePresent {
		t.Errorf("state = %v, want present", m.State())
	}
	if !m.Active() {
		t.Error("monitor inactive after reinsertion")
	}

	reinserted := 0
	for _, msg := range notifier.messages {
		if strings.Contains(msg, "reinserted") {
			reinserted++
		}
	}
	if reinserted != 1 {
		t.Errorf("reinserted notification shown %d times, want 1", reinserted)
	}
}

func TestLockedStateIsInertUntilRearm(t *testing.T) {
	det := script([]Reading{Absent}, repeat(Absent, 30))
	locker := &fakeLocker{}
	m := New(det, locker, notify.Noop{}, Options{GraceSeconds: 3})

	tick(m, 4) // countdown 1..4, 4 > 3 locks
	if locker.calls != 1 {
		t.Fatalf("lock calls = %d, want 1", locker.calls)
	}

	tick(m, 10)
	if locker.calls != 1 {
		t.Errorf("lock re-invoked while locked: %d calls", locker.calls)
	}
	if m.Countdown() != 0 {
		t.Errorf("countdown advanced while locked: %d", m.Countdown())
	}

	m.ResetFromLogin()
	if !m.Active() {
		t.Fatal("monitor not active after re-arm")
	}
	if m.State() != StateAbsentCounting {
		t.Errorf("state after re-arm with token absent = %v, want absent-counting", m.State())
	}

	tick(m, 4) // counting resumes from zero and locks again
	if locker.calls != 2 {
		t.Errorf("lock calls after re-arm and continued absence = %d, want 2", locker.calls)
	}
}

func TestUnknownReadingsChangeNothing(t *testing.T) {
	det := script([]Reading{Present}, repeat(Absent, 3), repeat(Unknown, 5), repeat(Absent, 1))
	locker := &fakeLocker{}
	m := New(det, locker, notify.Noop{}, Options{GraceSeconds: 10})

	tick(m, 3)
	if m.Countdown() != 3 {
		t.Fatalf("countdown = %d, want 3", m.Countdown())
	}

	tick(m, 5) // unknown readings
	if m.Countdown() != 3 {
		t.Errorf("countdown changed on unknown readings: %d", m.Countdown())
	}
	if !m.Active() {
		t.Error("activeMonitor changed on unknown readings")
	}
	if locker.calls != 0 {
		t.Errorf("lock invoked on unknown readings: %d calls", locker.calls)
	}

	tick(m, 1) // absence resumes counting where it left off
	if m.Countdown() != 4 {
		t.Errorf("countdown = %d after absence resumed, want 4", m.Countdown())
	}
}

func TestDetectionUnavailableAtConstruction(t *testing.T) {
	det := script(repeat(Unknown, 3))
	m := New(det, &fakeLocker{}, notify.Noop{}, Options{})

	if m.State() != StateAbsentCounting {
		t.Errorf("initial state = %v, want absent-counting", m.State())
	}
	if m.Countdown() != 0 {
		t.Errorf("initial countdown = %d, want 0", m.Countdown())
	}
}

func TestRearmWhilePresentIsIdempotent(t *testing.T) {
	det := script(repeat(Present, 5))
	locker := &fakeLocker{}
	m := New(det, locker, notify.Noop{}, Options{GraceSeconds: 10})

	m.ResetFromLogin()
	m.ResetFromLogin()

	if m.State() != StatePresent {
		t.Errorf("state = %v, want present", m.State())
	}
	if !m.Active() || m.Countdown() != 0 {
		t.Errorf("re-arm disturbed state: active=%v countdown=%d", m.Active(), m.Countdown())
	}
	if locker.calls != 0 {
		t.Errorf("lock invoked by re-arm: %d calls", locker.calls)
	}
}

func TestAbsenceNotificationsCoalesce(t *testing.T) {
	det := script([]Reading{Present}, repeat(Absent, 3))
	notifier := &fakeNotifier{}
	m := New(det, &fakeLocker{}, notifier, Options{GraceSeconds: 10})

	tick(m, 3)

	if len(notifier.messages) != 3 {
		t.Fatalf("notifications shown = %d, want 3", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "removed") {
		t.Errorf("first absence notification = %q, want removal message", notifier.messages[0])
	}
	if !strings.Contains(notifier.messages[1], "1 of 10") {
		t.Errorf("second absence notification = %q, want countdown message", notifier.messages[1])
	}

	// The first notification starts fresh; every update replaces its predecessor.
	if notifier.replaces[0] != "" {
		t.Errorf("first notification replace handle = %q, want empty", notifier.replaces[0])
	}
	if notifier.replaces[1] != "1" || notifier.replaces[2] != "2" {
		t.Errorf("updates did not chain replace handles: %v", notifier.replaces)
	}
}

func TestLockFailureStillTransitionsToLocked(t *testing.T) {
	det := script(repeat(Absent, 6))
	locker := &fakeLocker{fail: true}
	m := New(det, locker, notify.Noop{}, Options{GraceSeconds: 2})

	tick(m, 3)

	if locker.calls != 1 {
		t.Fatalf("lock calls = %d, want 1", locker.calls)
	}
	if m.State() != StateLocked {
		t.Errorf("state = %v, want locked even though the lock command failed", m.State())
	}
	if m.Active() {
		t.Error("monitor still active after failed lock attempt")
	}
}

func TestEventSinkSeesTransitions(t *testing.T) {
	sink := &fakeSink{}
	det := script([]Reading{Present}, repeat(Absent, 4), []Reading{Present})
	m := New(det, &fakeLocker{}, notify.Noop{}, Options{GraceSeconds: 3, Events: sink})

	tick(m, 5)

	want := []Event{EventRemoved, EventLocked, EventReinserted}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
	for i, e := range want {
		if sink.events[i] != e {
			t.Errorf("events[%d] = %v, want %v", i, sink.events[i], e)
		}
	}
}

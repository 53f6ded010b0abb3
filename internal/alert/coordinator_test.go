package alert

import (
	"testing"
	"time"
)

type spyAnnouncer struct {
	spoken []string
}

func (s *spyAnnouncer) Speak(message string) { s.spoken = append(s.spoken, message) }

type spyHaptic struct {
	pulses int
}

func (s *spyHaptic) Vibrate(_ []time.Duration) { s.pulses++ }

type spyBroadcaster struct {
	topics   []string
	payloads [][]byte
}

func (s *spyBroadcaster) Broadcast(topic string, payload []byte) {
	s.topics = append(s.topics, topic)
	s.payloads = append(s.payloads, payload)
}

// newTestCoordinator pins the clock and disarms real timers.
func newTestCoordinator(announcer Announcer, haptic Haptic, hub Broadcaster) (*Coordinator, *time.Time) {
	c := NewCoordinator(announcer, haptic, hub, "trip:test")
	now := time.Now()
	c.nowFn = func() time.Time { return now }
	c.afterFunc = func(time.Duration, func()) *time.Timer {
		return time.NewTimer(time.Hour)
	}
	return c, &now
}

func TestRaiseShowsAndAnnounces(t *testing.T) {
	announcer := &spyAnnouncer{}
	haptic := &spyHaptic{}
	hub := &spyBroadcaster{}
	c, _ := newTestCoordinator(announcer, haptic, hub)

	if !c.Raise("Pothole detected!", CategoryPothole) {
		t.Fatalf("expected raise to pass")
	}

	current, ok := c.Current()
	if !ok || current.Message != "Pothole detected!" || current.Category != CategoryPothole {
		t.Fatalf("unexpected current alert: %+v", current)
	}
	if len(announcer.spoken) != 1 || haptic.pulses != 1 {
		t.Fatalf("expected side effects, spoken=%d pulses=%d", len(announcer.spoken), haptic.pulses)
	}
	if len(hub.topics) != 1 || hub.topics[0] != "trip:test" {
		t.Fatalf("expected hub broadcast, got %v", hub.topics)
	}
}

func TestDebounceSameKey(t *testing.T) {
	c, now := newTestCoordinator(nil, nil, nil)

	if !c.Raise("Harsh braking detected!", CategoryBraking) {
		t.Fatalf("first raise must pass")
	}
	if c.Raise("Harsh braking detected!", CategoryBraking) {
		t.Fatalf("repeat inside window must be dropped")
	}

	*now = now.Add(5 * time.Second)
	if !c.Raise("Harsh braking detected!", CategoryBraking) {
		t.Fatalf("raise after window must pass")
	}
}

func TestDifferentKeyDoesNotPreempt(t *testing.T) {
	c, _ := newTestCoordinator(nil, nil, nil)

	c.Raise("Pothole detected!", CategoryPothole)
	if !c.Raise("Speed limit exceeded: 95 km/h", CategorySpeed) {
		t.Fatalf("different key must pass its own debounce")
	}

	current, ok := c.Current()
	if !ok || current.Category != CategoryPothole {
		t.Fatalf("showing alert must not be preempted, got %+v", current)
	}
}

func TestAutoClearAndDismiss(t *testing.T) {
	c, _ := newTestCoordinator(nil, nil, nil)

	var expire func()
	c.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		expire = f
		return time.NewTimer(time.Hour)
	}

	c.Raise("Pothole ahead in 100m!", CategoryProximity)
	if _, ok := c.Current(); !ok {
		t.Fatalf("expected showing alert")
	}

	expire()
	if _, ok := c.Current(); ok {
		t.Fatalf("expected alert cleared on timeout")
	}

	c.Raise("Crash detected!", CategoryCrash)
	c.Dismiss()
	if _, ok := c.Current(); ok {
		t.Fatalf("expected alert dismissed")
	}
}

func TestResetClearsDebounceHistory(t *testing.T) {
	c, _ := newTestCoordinator(nil, nil, nil)

	c.Raise("Pothole detected!", CategoryPothole)
	c.Reset()

	if _, ok := c.Current(); ok {
		t.Fatalf("expected no current alert after reset")
	}
	if !c.Raise("Pothole detected!", CategoryPothole) {
		t.Fatalf("reset must clear debounce history")
	}
}

func TestNilSideEffectsAreSafe(t *testing.T) {
	c, _ := newTestCoordinator(nil, nil, nil)
	if !c.Raise("ok", CategorySpeed) {
		t.Fatalf("raise with nil collaborators must work")
	}
}

package alert

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	// debounceWindow drops repeats of the same category+message.
	debounceWindow = 4000 * time.Millisecond
	// displayDuration is how long an alert stays visible before auto-clearing.
	displayDuration = 3500 * time.Millisecond
)

type Category string

const (
	CategoryPothole   Category = "pothole"
	CategorySpeed     Category = "speed"
	CategoryProximity Category = "proximity"
	CategoryCrash     Category = "crash"
	CategoryBraking   Category = "braking"
)

type Alert struct {
	Message  string    `json:"message"`
	Category Category  `json:"category"`
	RaisedAt time.Time `json:"raised_at"`
}

// Announcer speaks an alert out loud. The host platform supplies the real
// implementation; a nil announcer is a no-op.
type Announcer interface {
	Speak(message string)
}

// Haptic pulses the device. Durations alternate pause/vibrate.
type Haptic interface {
	Vibrate(pattern []time.Duration)
}

// Broadcaster pushes raised alerts to stream subscribers.
type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

// vibrationPattern is the pulse used for every alert.
var vibrationPattern = []time.Duration{0, 80 * time.Millisecond, 60 * time.Millisecond, 80 * time.Millisecond}

// Coordinator is the single choke point for user-facing alerts. It debounces
// per category+message, keeps at most one alert visible, and fires the spoken
// and haptic side effects. A later raise for a different key does not preempt
// the alert already showing; it surfaces only if nothing is visible.
type Coordinator struct {
	mu         sync.Mutex
	lastRaised map[string]time.Time
	current    *Alert
	clearTimer *time.Timer

	announcer Announcer
	haptic    Haptic
	hub       Broadcaster
	topic     string

	nowFn     func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

func NewCoordinator(announcer Announcer, haptic Haptic, hub Broadcaster, topic string) *Coordinator {
	return &Coordinator{
		lastRaised: map[string]time.Time{},
		announcer:  announcer,
		haptic:     haptic,
		hub:        hub,
		topic:      topic,
		nowFn:      time.Now,
		afterFunc:  time.AfterFunc,
	}
}

// Raise requests an alert. Returns false when the debounce window swallowed it.
func (c *Coordinator) Raise(message string, category Category) bool {
	c.mu.Lock()
	now := c.nowFn()
	key := string(category) + message
	if last, ok := c.lastRaised[key]; ok && now.Sub(last) < debounceWindow {
		c.mu.Unlock()
		return false
	}
	c.lastRaised[key] = now

	a := Alert{Message: message, Category: category, RaisedAt: now}
	if c.current == nil {
		c.current = &a
		c.clearTimer = c.afterFunc(displayDuration, c.clearExpired)
	}
	c.mu.Unlock()

	if c.announcer != nil {
		c.announcer.Speak(message)
	}
	if c.haptic != nil {
		c.haptic.Vibrate(vibrationPattern)
	}
	if c.hub != nil {
		if payload, err := json.Marshal(a); err == nil {
			c.hub.Broadcast(c.topic, payload)
		}
	}
	return true
}

// Current returns the alert being shown, if any.
func (c *Coordinator) Current() (Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Alert{}, false
	}
	return *c.current, true
}

// Dismiss clears the visible alert before its timer expires.
func (c *Coordinator) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Reset drops the visible alert and all debounce history.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.lastRaised = map[string]time.Time{}
}

func (c *Coordinator) clearExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Coordinator) clearLocked() {
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.current = nil
}

package speed

import (
	"math"
	"time"
)

const (
	DefaultLimitKmh = 80.0

	// harshBrakeDeltaMps is the per-sample speed drop that counts as a harsh
	// brake. Compared in m/s against the previous sample.
	harshBrakeDeltaMps = 3.5

	// minMovingSpeedMps guards against GPS jitter while stopped: a drop only
	// counts when the vehicle was actually moving beforehand.
	minMovingSpeedMps = 2.0

	harshBrakeCooldown = 3000 * time.Millisecond
)

type Kind int

const (
	KindOverspeed Kind = iota + 1
	KindHarshBrake
)

func (k Kind) String() string {
	switch k {
	case KindOverspeed:
		return "overspeed"
	case KindHarshBrake:
		return "harsh_brake"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind     Kind
	SpeedKmh float64
	DeltaMps float64
}

// Tracker derives speed violations and harsh-brake events from a location
// stream. Overspeed fires on every qualifying sample; the alert layer
// debounces presentation. Not safe for concurrent use; the owning session
// serializes calls.
type Tracker struct {
	limitKmh  float64
	prevSpeed float64
	lastBrake time.Time

	currentKmh float64
	topKmh     float64
}

func NewTracker(limitKmh float64) *Tracker {
	if limitKmh <= 0 {
		limitKmh = DefaultLimitKmh
	}
	return &Tracker{limitKmh: limitKmh}
}

func (t *Tracker) Reset() {
	t.prevSpeed = 0
	t.lastBrake = time.Time{}
	t.currentKmh = 0
	t.topKmh = 0
}

func (t *Tracker) CurrentKmh() float64 { return t.currentKmh }
func (t *Tracker) TopKmh() float64     { return t.topKmh }

// Process consumes one speed reading in m/s. Negative readings mean
// "unavailable" on some platforms and clamp to zero.
func (t *Tracker) Process(speedMps float64, now time.Time) []Event {
	speedMps = math.Max(0, speedMps)

	kmh := math.Round(speedMps * 3.6)
	t.currentKmh = kmh
	if kmh > t.topKmh {
		t.topKmh = kmh
	}

	var events []Event
	if kmh > t.limitKmh {
		events = append(events, Event{Kind: KindOverspeed, SpeedKmh: kmh})
	}

	delta := t.prevSpeed - speedMps
	if delta > harshBrakeDeltaMps &&
		t.prevSpeed > minMovingSpeedMps &&
		now.Sub(t.lastBrake) >= harshBrakeCooldown {
		events = append(events, Event{Kind: KindHarshBrake, SpeedKmh: kmh, DeltaMps: delta})
		t.lastBrake = now
	}

	// Always advance, whether or not an event fired.
	t.prevSpeed = speedMps

	return events
}

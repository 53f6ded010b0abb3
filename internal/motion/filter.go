package motion

import (
	"math"
	"time"
)

const (
	// alpha is the smoothing factor of the gravity low-pass filter. Higher
	// values track gravity more slowly and let more of a transient through.
	alpha = 0.8

	BumpThreshold  = 3.0
	CrashThreshold = 8.0

	bumpCooldown = 5000 * time.Millisecond
)

type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type EventKind int

const (
	KindBump EventKind = iota + 1
	KindCrash
)

func (k EventKind) String() string {
	switch k {
	case KindBump:
		return "bump"
	case KindCrash:
		return "crash"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind      EventKind
	Magnitude float64
	At        time.Time
}

// Filter isolates transient linear acceleration from a raw accelerometer
// stream by subtracting an exponentially smoothed gravity estimate, then
// classifies each residual as bump or crash. Callers must feed samples in
// arrival order; the gravity estimate is a strict recurrence.
//
// Filter is not safe for concurrent use. The owning session serializes calls.
type Filter struct {
	gravityX float64
	gravityY float64
	gravityZ float64
	seeded   bool

	lastReported time.Time
	magnitude    float64
}

func NewFilter() *Filter {
	return &Filter{}
}

// Reset clears the gravity estimate and cooldown so a new trip starts from a
// clean baseline.
func (f *Filter) Reset() {
	f.gravityX, f.gravityY, f.gravityZ = 0, 0, 0
	f.seeded = false
	f.lastReported = time.Time{}
	f.magnitude = 0
}

// Magnitude returns the linear acceleration magnitude of the last sample.
func (f *Filter) Magnitude() float64 {
	return f.magnitude
}

// Process consumes one sample and reports a classified event, if any.
// Crashes report on every qualifying sample; bumps respect a cooldown shared
// with crashes so a crash also suppresses the bump that follows it.
func (f *Filter) Process(s Sample, now time.Time) (Event, bool) {
	if !f.seeded {
		// Seed the gravity estimate directly so an uninitialized baseline
		// does not show up as a spike on the first sample.
		f.gravityX, f.gravityY, f.gravityZ = s.X, s.Y, s.Z
		f.seeded = true
		f.magnitude = 0
		return Event{}, false
	}

	f.gravityX = alpha*f.gravityX + (1-alpha)*s.X
	f.gravityY = alpha*f.gravityY + (1-alpha)*s.Y
	f.gravityZ = alpha*f.gravityZ + (1-alpha)*s.Z

	linearX := s.X - f.gravityX
	linearY := s.Y - f.gravityY
	linearZ := s.Z - f.gravityZ

	f.magnitude = math.Sqrt(linearX*linearX + linearY*linearY + linearZ*linearZ)

	if f.magnitude > CrashThreshold {
		f.lastReported = now
		return Event{Kind: KindCrash, Magnitude: f.magnitude, At: now}, true
	}

	if f.magnitude > BumpThreshold && now.Sub(f.lastReported) >= bumpCooldown {
		f.lastReported = now
		return Event{Kind: KindBump, Magnitude: f.magnitude, At: now}, true
	}

	return Event{}, false
}

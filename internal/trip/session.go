package trip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Wethmal/RoadQualityAI/internal/alert"
	"github.com/Wethmal/RoadQualityAI/internal/hazard"
	"github.com/Wethmal/RoadQualityAI/internal/motion"
	"github.com/Wethmal/RoadQualityAI/internal/mq"
	"github.com/Wethmal/RoadQualityAI/internal/proximity"
	"github.com/Wethmal/RoadQualityAI/internal/shared/geo"
	"github.com/Wethmal/RoadQualityAI/internal/speed"
)

var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionActive    = errors.New("user already has an active session")
	ErrSessionNotFound  = errors.New("session not found")
)

// cleanPassWindow is how long after a bump a pass over a hazard still counts
// as "bumpy", not clean.
const cleanPassWindow = 5000 * time.Millisecond

// Ledger is the slice of the hazard service a session needs.
type Ledger interface {
	Report(ctx context.Context, userID string, lat, lng, force float64, source string) (hazard.Hazard, error)
	RegisterCleanPass(ctx context.Context, userID, hazardID string) error
	Snapshot() []hazard.Hazard
}

// Publisher pushes detection telemetry; *mq.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev mq.TelemetryEvent) error
}

// SOSNotifier dispatches a crash response.
type SOSNotifier interface {
	TriggerSOS(ctx context.Context, userID, sessionID string, lat, lng, magnitude float64) error
}

// Session owns one trip's detection pipeline. All sensor state — the gravity
// estimate, cooldown timers, running score — belongs exclusively to the
// session and is serialized behind one mutex, so the host may deliver sensor
// and location callbacks from any goroutine. Ledger and telemetry writes
// happen off the sensor path; their failures are logged, never propagated
// into sensor processing.
type Session struct {
	ID     string
	UserID string

	mu        sync.Mutex
	state     State
	startedAt time.Time
	endedAt   time.Time

	score       int
	potholes    int
	harshBrakes int

	distanceM      float64
	lastLat        float64
	lastLng        float64
	hasLast        bool
	curLat, curLng float64
	hasFix         bool
	startLat       float64
	startLng       float64

	lastBump time.Time
	voted    map[string]bool

	filter  *motion.Filter
	tracker *speed.Tracker
	prox    *proximity.Index
	alerts  *alert.Coordinator

	ledger    Ledger
	telemetry Publisher
	sos       SOSNotifier

	pending sync.WaitGroup
	nowFn   func() time.Time
}

// start resets every component to a clean baseline and activates the session.
func (s *Session) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateActive
	s.startedAt = s.nowFn()
	s.score = initialScore
	s.potholes = 0
	s.harshBrakes = 0
	s.distanceM = 0
	s.hasLast = false
	s.hasFix = false
	s.lastBump = time.Time{}
	s.voted = map[string]bool{}

	s.filter.Reset()
	s.tracker.Reset()
	s.prox.Reset()
	s.alerts.Reset()
}

// HandleAcceleration feeds one accelerometer sample through the motion filter.
// Samples must arrive in order; the HTTP handler delivers them serially and
// the mutex guards against concurrent location callbacks.
func (s *Session) HandleAcceleration(ctx context.Context, sample motion.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionNotActive
	}

	now := s.nowFn()
	ev, ok := s.filter.Process(sample, now)
	if !ok {
		return nil
	}

	switch ev.Kind {
	case motion.KindBump:
		s.lastBump = now
		s.score = max(0, s.score-penaltyBump)
		s.potholes++
		s.alerts.Raise("Pothole detected!", alert.CategoryPothole)
		if s.hasFix {
			s.reportHazard(s.curLat, s.curLng, ev.Magnitude)
		}
		s.publishTelemetry("bump", ev.Magnitude)
	case motion.KindCrash:
		s.lastBump = now
		s.alerts.Raise("Crash detected! SOS activating...", alert.CategoryCrash)
		if s.sos != nil && s.hasFix {
			s.dispatchSOS(s.curLat, s.curLng, ev.Magnitude)
		}
		s.publishTelemetry("crash", ev.Magnitude)
	}
	return nil
}

// HandleLocation feeds one location sample: speed events, distance
// accumulation, proximity warnings and clean-pass voting.
func (s *Session) HandleLocation(ctx context.Context, sample LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionNotActive
	}

	now := s.nowFn()
	if !s.hasFix {
		s.startLat, s.startLng = sample.Latitude, sample.Longitude
	}
	s.curLat, s.curLng = sample.Latitude, sample.Longitude
	s.hasFix = true

	for _, ev := range s.tracker.Process(sample.SpeedMps, now) {
		switch ev.Kind {
		case speed.KindOverspeed:
			// Informational only; overspeed does not penalize the score.
			s.alerts.Raise(fmt.Sprintf("Speed limit exceeded: %.0f km/h", ev.SpeedKmh), alert.CategorySpeed)
			s.publishTelemetry("overspeed", ev.SpeedKmh)
		case speed.KindHarshBrake:
			s.score = max(0, s.score-penaltyHarshBrake)
			s.harshBrakes++
			s.alerts.Raise("Harsh braking detected!", alert.CategoryBraking)
			s.publishTelemetry("harsh_brake", ev.DeltaMps)
		}
	}

	if s.hasLast {
		s.distanceM += geo.DistanceM(s.lastLat, s.lastLng, sample.Latitude, sample.Longitude)
	}
	s.lastLat, s.lastLng = sample.Latitude, sample.Longitude
	s.hasLast = true

	snapshot := s.ledger.Snapshot()

	points := make([]proximity.Point, len(snapshot))
	for i, h := range snapshot {
		points[i] = proximity.Point{ID: h.ID, Lat: h.Lat, Lng: h.Lng}
	}
	if _, ok := s.prox.Check(sample.Latitude, sample.Longitude, points, now); ok {
		s.alerts.Raise("Pothole ahead in 100m!", alert.CategoryProximity)
	}

	s.registerCleanPasses(sample.Latitude, sample.Longitude, snapshot, now)
	return nil
}

// registerCleanPasses votes down hazards the vehicle is directly on top of
// when no bump fired recently. The ledger ignores repeat and self votes; the
// local set just avoids hammering it on every tick.
func (s *Session) registerCleanPasses(lat, lng float64, snapshot []hazard.Hazard, now time.Time) {
	if now.Sub(s.lastBump) < cleanPassWindow {
		return
	}
	for _, h := range snapshot {
		if s.voted[h.ID] {
			continue
		}
		if geo.DistanceM(lat, lng, h.Lat, h.Lng) > proximity.MinBandM {
			continue
		}
		s.voted[h.ID] = true
		hazardID := h.ID
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if err := s.ledger.RegisterCleanPass(context.Background(), s.UserID, hazardID); err != nil {
				log.Printf("clean pass for %s failed: %v", hazardID, err)
			}
		}()
	}
}

func (s *Session) reportHazard(lat, lng, magnitude float64) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if _, err := s.ledger.Report(context.Background(), s.UserID, lat, lng, magnitude, hazard.SourceSensor); err != nil {
			log.Printf("hazard report failed: %v", err)
		}
	}()
}

func (s *Session) dispatchSOS(lat, lng, magnitude float64) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.sos.TriggerSOS(context.Background(), s.UserID, s.ID, lat, lng, magnitude); err != nil {
			log.Printf("sos dispatch failed: %v", err)
		}
	}()
}

func (s *Session) publishTelemetry(kind string, value float64) {
	if s.telemetry == nil {
		return
	}
	ev := mq.TelemetryEvent{
		Kind:      kind,
		UserID:    s.UserID,
		SessionID: s.ID,
		Latitude:  s.curLat,
		Longitude: s.curLng,
		Value:     value,
		At:        s.nowFn(),
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.telemetry.Publish(context.Background(), ev); err != nil {
			log.Printf("telemetry publish failed: %v", err)
		}
	}()
}

// End freezes the session. Once ended, late sensor callbacks are rejected
// rather than mutating a finished trip. Waits for in-flight ledger and
// telemetry writes before returning the final stats.
func (s *Session) End() (Stats, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return Stats{}, ErrSessionNotActive
	}
	s.state = StateEnded
	s.endedAt = s.nowFn()
	s.alerts.Dismiss()
	stats := s.statsLocked()
	s.mu.Unlock()

	s.pending.Wait()
	return stats, nil
}

func (s *Session) statsLocked() Stats {
	duration := int64(s.endedAt.Sub(s.startedAt).Seconds())
	return Stats{
		DistanceKm:  s.distanceM / 1000,
		DurationSec: duration,
		Potholes:    s.potholes,
		HarshBrakes: s.harshBrakes,
		TopSpeedKmh: s.tracker.TopKmh(),
		Score:       s.score,
	}
}

func (s *Session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive
}

// Status reports the live session view.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:   s.ID,
		State:       s.state.String(),
		Score:       s.score,
		Potholes:    s.potholes,
		HarshBrakes: s.harshBrakes,
		CurrentKmh:  s.tracker.CurrentKmh(),
		TopSpeedKmh: s.tracker.TopKmh(),
		DistanceKm:  s.distanceM / 1000,
		Magnitude:   s.filter.Magnitude(),
	}
}

func (s *Session) locations() (start, end string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFix {
		return "", ""
	}
	return fmt.Sprintf("%.5f,%.5f", s.startLat, s.startLng),
		fmt.Sprintf("%.5f,%.5f", s.curLat, s.curLng)
}

func (s *Session) timespan() (time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.endedAt
}

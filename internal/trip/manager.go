package trip

import (
	"context"
	"sync"
	"time"

	"github.com/Wethmal/RoadQualityAI/internal/alert"
	"github.com/Wethmal/RoadQualityAI/internal/motion"
	"github.com/Wethmal/RoadQualityAI/internal/proximity"
	"github.com/Wethmal/RoadQualityAI/internal/speed"
	"github.com/Wethmal/RoadQualityAI/internal/stream"

	"github.com/google/uuid"
)

// Manager owns the live sessions. One active session per user; ending a
// session detaches it before a new start is accepted.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]string

	store     *Service
	ledger    Ledger
	hub       alert.Broadcaster
	announcer alert.Announcer
	haptic    alert.Haptic
	telemetry Publisher
	sos       SOSNotifier
	limitKmh  float64

	nowFn func() time.Time
}

func NewManager(store *Service, ledger Ledger, hub alert.Broadcaster, telemetry Publisher, sos SOSNotifier, limitKmh float64) *Manager {
	return &Manager{
		sessions:  map[string]*Session{},
		byUser:    map[string]string{},
		store:     store,
		ledger:    ledger,
		hub:       hub,
		telemetry: telemetry,
		sos:       sos,
		limitKmh:  limitKmh,
		nowFn:     time.Now,
	}
}

// SetOutputs installs the spoken/haptic devices used by new sessions.
func (m *Manager) SetOutputs(announcer alert.Announcer, haptic alert.Haptic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcer = announcer
	m.haptic = haptic
}

func (m *Manager) Start(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byUser[userID]; ok {
		if existing, ok := m.sessions[id]; ok && existing.active() {
			return nil, ErrSessionActive
		}
	}

	id := uuid.NewString()
	s := &Session{
		ID:        id,
		UserID:    userID,
		filter:    motion.NewFilter(),
		tracker:   speed.NewTracker(m.limitKmh),
		prox:      proximity.NewIndex(),
		alerts:    alert.NewCoordinator(m.announcer, m.haptic, m.hub, stream.TripTopic(id)),
		ledger:    m.ledger,
		telemetry: m.telemetry,
		sos:       m.sos,
		nowFn:     m.nowFn,
	}
	s.start()

	m.sessions[id] = s
	m.byUser[userID] = id
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// End freezes the session, persists the trip summary plus leaderboard
// counters, and releases the slot. The session stays rejected-but-addressable
// until persistence finishes so late callbacks fail cleanly instead of
// resurrecting it.
func (m *Manager) End(ctx context.Context, sessionID string) (Trip, Stats, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return Trip{}, Stats{}, ErrSessionNotFound
	}

	stats, err := s.End()
	if err != nil {
		return Trip{}, Stats{}, err
	}

	startLoc, endLoc := s.locations()
	startedAt, endedAt := s.timespan()
	record, err := m.store.SaveTrip(ctx, s.UserID, stats, startLoc, endLoc, startedAt, endedAt)

	m.mu.Lock()
	delete(m.sessions, sessionID)
	if m.byUser[s.UserID] == sessionID {
		delete(m.byUser, s.UserID)
	}
	m.mu.Unlock()

	if err != nil {
		// The trip still ended locally; the caller may retry persistence.
		return Trip{}, stats, err
	}
	return record, stats, nil
}

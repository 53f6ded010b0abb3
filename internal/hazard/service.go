package hazard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Wethmal/RoadQualityAI/internal/db"
	"github.com/Wethmal/RoadQualityAI/internal/stream"

	"github.com/google/uuid"
)

// ErrStorageUnavailable wraps store failures so callers can keep detecting on
// the last good local snapshot and surface a transient banner.
var ErrStorageUnavailable = errors.New("storage unavailable")

type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

// Service is the durable, crowd-corrected hazard ledger. Every write refreshes
// an in-memory snapshot of active hazards which proximity checks read without
// touching the store, and fans the new snapshot out to subscribers.
type Service struct {
	db  db.TxQuerier
	hub Broadcaster

	mu       sync.RWMutex
	snapshot []Hazard
	subs     map[int]func([]Hazard)
	nextSub  int
}

func NewService(q db.TxQuerier, hub Broadcaster) *Service {
	return &Service{
		db:   q,
		hub:  hub,
		subs: map[int]func([]Hazard){},
	}
}

// Report creates a new active hazard with the reporting user as its first
// reporter and returns the stored record.
func (s *Service) Report(ctx context.Context, userID string, lat, lng, force float64, source string) (Hazard, error) {
	if source == "" {
		source = SourceSensor
	}
	h := Hazard{
		ID:         uuid.NewString(),
		Lat:        lat,
		Lng:        lng,
		BumpForce:  force,
		DetectedBy: source,
		Status:     StatusActive,
		Reporters:  []string{userID},
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO detected_potholes (id, location, bump_force, detected_by, status, reporters, clean_passers, clean_pass_count)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5, $6, $7, $8, 0)
		RETURNING created_at
	`, h.ID, h.Lng, h.Lat, h.BumpForce, h.DetectedBy, h.Status, h.Reporters, []string{})
	if err := row.Scan(&h.CreatedAt); err != nil {
		return Hazard{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.refresh(ctx)
	return h, nil
}

// RegisterCleanPass records negative evidence against a hazard. It is a no-op
// for the hazard's own reporters and for repeat voters. The row is locked for
// the duration of the vote so concurrent voters serialize and the count stays
// exact. Reaching the threshold resolves the hazard in the same update.
func (s *Service) RegisterCleanPass(ctx context.Context, userID, hazardID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	var reporters, cleanPassers []string
	var count int
	row := tx.QueryRow(ctx, `
		SELECT status, reporters, clean_passers, clean_pass_count
		FROM detected_potholes WHERE id=$1
		FOR UPDATE
	`, hazardID)
	if err := row.Scan(&status, &reporters, &cleanPassers, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if status == StatusResolved {
		return nil
	}
	if contains(reporters, userID) || contains(cleanPassers, userID) {
		return nil
	}

	count++
	newStatus := StatusActive
	if count >= resolveThreshold {
		newStatus = StatusResolved
	}

	if _, err := tx.Exec(ctx, `
		UPDATE detected_potholes
		SET clean_passers = array_append(clean_passers, $2),
		    clean_pass_count = $3,
		    status = $4
		WHERE id = $1
	`, hazardID, userID, count, newStatus); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.refresh(ctx)
	return nil
}

// Active loads the active hazards from the store.
func (s *Service) Active(ctx context.Context) ([]Hazard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ST_Y(location::geometry), ST_X(location::geometry), bump_force, detected_by,
		       status, reporters, clean_passers, clean_pass_count, created_at
		FROM detected_potholes
		WHERE status = $1
		ORDER BY created_at DESC
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var hazards []Hazard
	for rows.Next() {
		var h Hazard
		if err := rows.Scan(&h.ID, &h.Lat, &h.Lng, &h.BumpForce, &h.DetectedBy, &h.Status, &h.Reporters, &h.CleanPassers, &h.CleanPassCount, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		hazards = append(hazards, h)
	}
	return hazards, nil
}

// Snapshot returns the last good active set without touching the store.
func (s *Service) Snapshot() []Hazard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Hazard, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Subscribe registers a callback that receives the full active set on every
// change, starting with the current snapshot. The returned function cancels
// the subscription.
func (s *Service) Subscribe(fn func([]Hazard)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := make([]Hazard, len(s.snapshot))
	copy(current, s.snapshot)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Warm loads the snapshot at startup so proximity checks have data before the
// first write.
func (s *Service) Warm(ctx context.Context) error {
	hazards, err := s.Active(ctx)
	if err != nil {
		return err
	}
	s.publish(hazards)
	return nil
}

// refresh reloads the active set after a write. A failed reload keeps the
// previous snapshot; detection continues on stale data rather than stopping.
func (s *Service) refresh(ctx context.Context) {
	hazards, err := s.Active(ctx)
	if err != nil {
		log.Printf("hazard snapshot refresh failed: %v", err)
		return
	}
	s.publish(hazards)
}

func (s *Service) publish(hazards []Hazard) {
	s.mu.Lock()
	s.snapshot = hazards
	subs := make([]func([]Hazard), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		out := make([]Hazard, len(hazards))
		copy(out, hazards)
		fn(out)
	}

	if s.hub != nil {
		if payload, err := json.Marshal(hazards); err == nil {
			s.hub.Broadcast(stream.TopicHazards, payload)
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

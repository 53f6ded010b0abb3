package trip

import (
	"context"
	"fmt"
	"time"

	"github.com/Wethmal/RoadQualityAI/internal/db"
	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/google/uuid"
)

// Service persists trip summaries and cumulative leaderboard counters.
type Service struct {
	db db.TxQuerier
}

func NewService(q db.TxQuerier) *Service {
	return &Service{db: q}
}

// SaveTrip appends the immutable trip record and folds its score and hazard
// count into the user's leaderboard row. Both writes commit together; the
// counter update is a single conflict-upsert so concurrent trip ends never
// lose increments.
func (s *Service) SaveTrip(ctx context.Context, userID string, stats Stats, startLoc, endLoc string, startedAt, endedAt time.Time) (Trip, error) {
	record := Trip{
		ID:               uuid.NewString(),
		UserID:           userID,
		StartLocation:    startLoc,
		EndLocation:      endLoc,
		DistanceKm:       stats.DistanceKm,
		DurationSec:      stats.DurationSec,
		HarshBrakesCount: stats.HarshBrakes,
		TripScore:        stats.Score,
		TopSpeedKmh:      stats.TopSpeedKmh,
		PotholesDetected: stats.Potholes,
		StartTime:        startedAt,
		EndTime:          endedAt,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Trip{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO trips (id, user_id, start_location, end_location, distance_km, duration_sec,
		                   harsh_brakes_count, trip_score, top_speed_kmh, potholes_detected, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, record.ID, record.UserID, record.StartLocation, record.EndLocation, record.DistanceKm, record.DurationSec,
		record.HarshBrakesCount, record.TripScore, record.TopSpeedKmh, record.PotholesDetected, record.StartTime, record.EndTime); err != nil {
		return Trip{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO leaderboard (user_id, total_score, total_trips, potholes_detected)
		VALUES ($1,$2,1,$3)
		ON CONFLICT (user_id) DO UPDATE
		SET total_score = leaderboard.total_score + EXCLUDED.total_score,
		    total_trips = leaderboard.total_trips + 1,
		    potholes_detected = leaderboard.potholes_detected + EXCLUDED.potholes_detected
	`, record.UserID, record.TripScore, record.PotholesDetected); err != nil {
		return Trip{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Trip{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	return record, nil
}

// UserTrips returns the user's trip history, most recent first.
func (s *Service) UserTrips(ctx context.Context, userID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, start_location, end_location, distance_km, duration_sec,
		       harsh_brakes_count, trip_score, top_speed_kmh, potholes_detected, start_time, end_time
		FROM trips WHERE user_id=$1
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var tr Trip
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.StartLocation, &tr.EndLocation, &tr.DistanceKm, &tr.DurationSec,
			&tr.HarshBrakesCount, &tr.TripScore, &tr.TopSpeedKmh, &tr.PotholesDetected, &tr.StartTime, &tr.EndTime); err != nil {
			return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
		}
		trips = append(trips, tr)
	}
	return trips, nil
}

package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/Wethmal/RoadQualityAI/internal/db"
	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/jackc/pgx/v5"
)

var ErrNotRanked = errors.New("user has no completed trips")

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

// Standings returns the top drivers ordered by cumulative score. Ranks are
// assigned here, 1-based in result order.
func (s *Service) Standings(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT l.user_id, u.name, l.total_score, l.total_trips, l.potholes_detected
		FROM leaderboard l
		JOIN users u ON u.id = l.user_id
		ORDER BY l.total_score DESC, l.user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Name, &e.TotalScore, &e.TotalTrips, &e.PotholesDetected); err != nil {
			return nil, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// UserEntry returns one user's standing, rank included.
func (s *Service) UserEntry(ctx context.Context, userID string) (Entry, error) {
	var e Entry
	err := s.db.QueryRow(ctx, `
		SELECT l.user_id, u.name, l.total_score, l.total_trips, l.potholes_detected,
		       (SELECT COUNT(*) + 1 FROM leaderboard b WHERE b.total_score > l.total_score)
		FROM leaderboard l
		JOIN users u ON u.id = l.user_id
		WHERE l.user_id = $1
	`, userID).Scan(&e.UserID, &e.Name, &e.TotalScore, &e.TotalTrips, &e.PotholesDetected, &e.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotRanked
		}
		return Entry{}, fmt.Errorf("%w: %v", hazard.ErrStorageUnavailable, err)
	}
	return e, nil
}

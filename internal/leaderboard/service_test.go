package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestStandingsAssignsRanks(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`(?s)SELECT l.user_id, u.name.+ORDER BY l.total_score DESC`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "name", "total_score", "total_trips", "potholes_detected"}).
			AddRow("user-2", "Nadia", 420, 5, 12).
			AddRow("user-1", "Kasun", 310, 4, 7))

	entries, err := NewService(mock).Standings(context.Background(), 10)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Rank != 1 || entries[0].UserID != "user-2" {
		t.Fatalf("top entry wrong: %+v", entries[0])
	}
	if entries[1].Rank != 2 || entries[1].TotalScore != 310 {
		t.Fatalf("second entry wrong: %+v", entries[1])
	}
}

func TestUserEntryRank(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`(?s)SELECT l.user_id, u.name.+WHERE l.user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "name", "total_score", "total_trips", "potholes_detected", "rank"}).
			AddRow("user-1", "Kasun", 310, 4, 7, 2))

	entry, err := NewService(mock).UserEntry(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("user entry: %v", err)
	}
	if entry.Rank != 2 || entry.TotalTrips != 4 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestUserEntryNotRanked(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`(?s)SELECT l.user_id, u.name.+WHERE l.user_id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	if _, err := NewService(mock).UserEntry(context.Background(), "ghost"); !errors.Is(err, ErrNotRanked) {
		t.Fatalf("expected ErrNotRanked, got %v", err)
	}
}

func TestStandingsStorageError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`(?s)SELECT l.user_id, u.name`).
		WithArgs(20).
		WillReturnError(errors.New("connection refused"))

	if _, err := NewService(mock).Standings(context.Background(), 20); !errors.Is(err, hazard.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

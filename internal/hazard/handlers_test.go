package hazard

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func testAuth(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestHazardHandlersList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, ST_Y\(location::geometry\)`).
		WithArgs(StatusActive).
		WillReturnRows(activeRows(Hazard{
			ID: "h-1", Lat: 6.9, Lng: 79.8, Status: StatusActive,
			Reporters: []string{"user-1"}, CleanPassers: []string{}, CreatedAt: time.Now(),
		}))

	app := fiber.New()
	RegisterRoutes(app.Group("/hazards"), NewService(mock, nil), testAuth("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/hazards/", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list hazards: %v status=%d", err, resp.StatusCode)
	}
}

func TestHazardHandlersReport(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO detected_potholes`).
		WithArgs(pgxmock.AnyArg(), 79.8, 6.9, 5.1, SourceUserReport, StatusActive, []string{"user-1"}, []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`SELECT id, ST_Y\(location::geometry\)`).
		WithArgs(StatusActive).
		WillReturnRows(activeRows())

	app := fiber.New()
	RegisterRoutes(app.Group("/hazards"), NewService(mock, nil), testAuth("user-1"))

	body := []byte(`{"latitude":6.9,"longitude":79.8,"bump_force":5.1}`)
	req := httptest.NewRequest(http.MethodPost, "/hazards/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("report hazard: %v status=%d", err, resp.StatusCode)
	}
}

func TestHazardHandlersCleanPass(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, reporters, clean_passers, clean_pass_count`).
		WithArgs("h-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "reporters", "clean_passers", "clean_pass_count"}).
			AddRow(StatusActive, []string{"user-2"}, []string{}, 0))
	mock.ExpectExec(`UPDATE detected_potholes`).
		WithArgs("h-1", "user-1", 1, StatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT id, ST_Y\(location::geometry\)`).
		WithArgs(StatusActive).
		WillReturnRows(activeRows())

	app := fiber.New()
	RegisterRoutes(app.Group("/hazards"), NewService(mock, nil), testAuth("user-1"))

	req := httptest.NewRequest(http.MethodPost, "/hazards/h-1/clean-pass", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clean pass: %v status=%d", err, resp.StatusCode)
	}
}

func TestHazardHandlersRequireUser(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/hazards"), NewService(nil, nil), func(c *fiber.Ctx) error { return c.Next() })

	req := httptest.NewRequest(http.MethodPost, "/hazards/h-1/clean-pass", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without user, got %d", resp.StatusCode)
	}
}

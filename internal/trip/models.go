package trip

import "time"

type State int

const (
	StateNotStarted State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "not_started"
	}
}

const (
	initialScore      = 100
	penaltyBump       = 10
	penaltyHarshBrake = 5
)

// Trip is the immutable summary written when a session ends.
type Trip struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	StartLocation    string    `json:"start_location"`
	EndLocation      string    `json:"end_location"`
	DistanceKm       float64   `json:"distance_km"`
	DurationSec      int64     `json:"duration_sec"`
	HarshBrakesCount int       `json:"harsh_brakes_count"`
	TripScore        int       `json:"trip_score"`
	TopSpeedKmh      float64   `json:"top_speed_kmh"`
	PotholesDetected int       `json:"potholes_detected"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
}

// Stats is the running aggregate of an active session, frozen at End.
type Stats struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationSec int64   `json:"duration_sec"`
	Potholes    int     `json:"potholes"`
	HarshBrakes int     `json:"harsh_brakes"`
	TopSpeedKmh float64 `json:"top_speed_kmh"`
	Score       int     `json:"score"`
}

// LocationSample is one reading from the location stream. Speed may arrive
// negative when the platform cannot measure it.
type LocationSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedMps  float64 `json:"speed_mps"`
}

// Status is the live view of a session exposed to the client.
type Status struct {
	SessionID   string  `json:"session_id"`
	State       string  `json:"state"`
	Score       int     `json:"score"`
	Potholes    int     `json:"potholes"`
	HarshBrakes int     `json:"harsh_brakes"`
	CurrentKmh  float64 `json:"current_kmh"`
	TopSpeedKmh float64 `json:"top_speed_kmh"`
	DistanceKm  float64 `json:"distance_km"`
	Magnitude   float64 `json:"magnitude"`
}

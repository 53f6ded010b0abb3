package hazard

import "time"

const (
	StatusActive   = "active"
	StatusResolved = "resolved"

	SourceSensor     = "accelerometer"
	SourceUserReport = "user-report"

	// resolveThreshold is the number of clean passes that retire a hazard.
	resolveThreshold = 2
)

type Hazard struct {
	ID             string    `json:"id"`
	Lat            float64   `json:"latitude"`
	Lng            float64   `json:"longitude"`
	BumpForce      float64   `json:"bump_force"`
	DetectedBy     string    `json:"detected_by"`
	Status         string    `json:"status"`
	Reporters      []string  `json:"reporters"`
	CleanPassers   []string  `json:"clean_passers"`
	CleanPassCount int       `json:"clean_pass_count"`
	CreatedAt      time.Time `json:"created_at"`
}

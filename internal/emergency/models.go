package emergency

import "time"

type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Relation  string    `json:"relation"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// SOSEvent records one crash response, manual or sensor-triggered.
type SOSEvent struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id,omitempty"`
	Lat           float64   `json:"latitude"`
	Lng           float64   `json:"longitude"`
	Magnitude     float64   `json:"magnitude"`
	NotifiedCount int       `json:"notified_count"`
	CreatedAt     time.Time `json:"created_at"`
}

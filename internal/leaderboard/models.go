package leaderboard

// Entry is one row of the standings. Rank is positional and recomputed on
// every read; only the counters are stored.
type Entry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	TotalScore       int    `json:"total_score"`
	TotalTrips       int    `json:"total_trips"`
	PotholesDetected int    `json:"potholes_detected"`
}

package proximity

import (
	"time"

	"github.com/Wethmal/RoadQualityAI/internal/shared/geo"
)

const (
	// Open band: closer than 5 m counts as already on top of the hazard,
	// farther than 100 m is not worth warning about yet.
	MinBandM = 5.0
	MaxBandM = 100.0

	alertCooldown = 5000 * time.Millisecond
)

// Point is one active hazard position from the live snapshot.
type Point struct {
	ID  string
	Lat float64
	Lng float64
}

// Index finds the nearest upcoming hazard inside the alert band and gates
// warnings behind a cooldown so a vehicle approaching one hazard is not
// warned on every location tick.
type Index struct {
	lastAlert time.Time
}

func NewIndex() *Index {
	return &Index{}
}

func (ix *Index) Reset() {
	ix.lastAlert = time.Time{}
}

// Nearest returns the closest hazard strictly inside (MinBandM, MaxBandM).
func Nearest(lat, lng float64, hazards []Point) (Point, float64, bool) {
	var best Point
	bestDist := 0.0
	found := false
	for _, h := range hazards {
		d := geo.DistanceM(lat, lng, h.Lat, h.Lng)
		if d <= MinBandM || d >= MaxBandM {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = h, d, true
		}
	}
	return best, bestDist, found
}

// Check evaluates the snapshot against the current position and reports the
// nearest in-band hazard at most once per cooldown window.
func (ix *Index) Check(lat, lng float64, hazards []Point, now time.Time) (Point, bool) {
	p, _, ok := Nearest(lat, lng, hazards)
	if !ok {
		return Point{}, false
	}
	if now.Sub(ix.lastAlert) < alertCooldown {
		return Point{}, false
	}
	ix.lastAlert = now
	return p, true
}

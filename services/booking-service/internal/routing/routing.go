package routing

import (
	"math"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

// Stop is one located visit on a groomer's day route.
type Stop struct {
	AppointmentID string
	Location      model.GeoPoint
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points on a
// spherical Earth. An appointment without coordinates contributes (0,0); the
// resulting distances can be enormous, but the ordering stays deterministic.
func HaversineKm(a, b model.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Order sequences stops with a greedy nearest-neighbor walk.
//
// The anchor is the first stop in input order. At each step the remaining
// stop with the smallest haversine distance to the current one is appended;
// ties go to the earliest remaining stop, so the result is deterministic for
// a given input order. The algorithm minimizes each immediate hop, not the
// whole tour. Zero or one stops are returned unchanged.
func Order(stops []Stop) []Stop {
	if len(stops) <= 1 {
		return stops
	}

	remaining := make([]Stop, len(stops)-1)
	copy(remaining, stops[1:])

	ordered := make([]Stop, 0, len(stops))
	ordered = append(ordered, stops[0])
	current := stops[0]

	for len(remaining) > 0 {
		best := 0
		bestDist := HaversineKm(current.Location, remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := HaversineKm(current.Location, remaining[i].Location); d < bestDist {
				best = i
				bestDist = d
			}
		}
		current = remaining[best]
		ordered = append(ordered, current)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

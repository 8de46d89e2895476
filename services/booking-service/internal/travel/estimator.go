package travel

import (
	"context"
	"errors"
	"math"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/routing"
)

// ErrUnavailable means the live travel-time lookup could not produce an
// estimate. Callers substitute FallbackMinutes; the error never reaches the
// planning API.
var ErrUnavailable = errors.New("travel estimate unavailable")

// Estimator returns the driving time in whole minutes between two points.
type Estimator interface {
	Estimate(ctx context.Context, origin, dest model.GeoPoint) (int, error)
}

const fallbackSpeedKmh = 30

// FallbackMinutes estimates travel time from straight-line distance at an
// assumed average speed of 30 km/h, rounded to the nearest minute.
func FallbackMinutes(origin, dest model.GeoPoint) int {
	km := routing.HaversineKm(origin, dest)
	return int(math.Round(km / fallbackSpeedKmh * 60))
}

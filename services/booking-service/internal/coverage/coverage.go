package coverage

import "github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"

// Area is a rectangular service-area bound. With Enabled false every address
// is accepted, including appointments without coordinates.
type Area struct {
	Enabled bool
	MinLat  float64
	MaxLat  float64
	MinLng  float64
	MaxLng  float64
}

// Contains reports whether the point falls inside the service area. When the
// check is enabled, an appointment without coordinates is out of coverage.
func (a Area) Contains(p *model.GeoPoint) bool {
	if !a.Enabled {
		return true
	}
	if p == nil {
		return false
	}
	return p.Lat >= a.MinLat && p.Lat <= a.MaxLat &&
		p.Lng >= a.MinLng && p.Lng <= a.MaxLng
}

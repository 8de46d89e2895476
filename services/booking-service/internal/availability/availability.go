package availability

import (
	"fmt"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

// Conflict reports that a candidate slot overlaps an approved appointment.
type Conflict struct {
	AppointmentID string
	StartMinute   int
	EndMinute     int
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("slot conflicts with approved appointment %s (%s-%s)",
		c.AppointmentID, model.FormatMinute(c.StartMinute), model.FormatMinute(c.EndMinute))
}

// Check determines whether a booking of the given service type starting at
// startMinute would overlap any of the approved appointments for the date.
// The candidate interval is [startMinute, startMinute+duration).
//
// The overlap test is inclusive at the boundary: two intervals conflict
// unless one ends strictly before the other starts, so back-to-back slots
// that touch at an endpoint are rejected. Appointments in any status other
// than APPROVED are ignored. excludeID skips one appointment (the one being
// rescheduled).
func Check(startMinute int, service model.ServiceType, approved []model.Appointment, excludeID string) error {
	s1 := startMinute
	e1 := startMinute + service.DurationMinutes()

	for _, appt := range approved {
		if appt.Status != model.StatusApproved {
			continue
		}
		if excludeID != "" && appt.ID == excludeID {
			continue
		}
		s2 := appt.StartMinute
		e2 := appt.EndMinute()
		if !(e1 < s2 || s1 > e2) {
			return &Conflict{AppointmentID: appt.ID, StartMinute: s2, EndMinute: e2}
		}
	}
	return nil
}

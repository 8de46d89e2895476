package scheduling

import (
	"context"
	"time"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

// Store persists appointments. Create, Approve and Reschedule must run the
// availability check and the write as one atomic unit per date so that two
// concurrent requests cannot both claim overlapping slots.
type Store interface {
	Create(ctx context.Context, appt *model.Appointment) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	Approve(ctx context.Context, id string) error
	Reschedule(ctx context.Context, appt *model.Appointment) error
	ListApprovedForDate(ctx context.Context, date time.Time, groomerID string) ([]model.Appointment, error)
	ListForCustomer(ctx context.Context, customerID string) ([]model.Appointment, error)
	ListForDate(ctx context.Context, date time.Time, groomerID string) ([]model.Appointment, error)
	LatestForPet(ctx context.Context, petID string) (model.Appointment, error)
}

// RoutePlanStore keeps at most one visiting-order override per date.
type RoutePlanStore interface {
	Save(ctx context.Context, plan model.DayRoutePlan) error
	Get(ctx context.Context, date time.Time) (model.DayRoutePlan, error)
}

type PetDirectory interface {
	Get(ctx context.Context, id string) (model.Pet, error)
}

type GroomerDirectory interface {
	List(ctx context.Context) ([]model.Groomer, error)
}

// History stores grooming-history entries: appended on completion, read
// back per pet. Record failures are logged and never fail the completing
// transition.
type History interface {
	Record(ctx context.Context, rec model.CutRecord) error
	ListForPet(ctx context.Context, petName string) ([]model.CutRecord, error)
}

// Notifier dispatches a booking event toward a user. Fire-and-forget: the
// implementation owns failure handling, the scheduler never sees it.
type Notifier interface {
	Notify(ctx context.Context, userID, event, channel string)
}

type CoverageChecker interface {
	Contains(p *model.GeoPoint) bool
}

// AssignmentPolicy picks a groomer for a new appointment from the candidate
// list, returning the chosen groomer id or "" for unassigned.
type AssignmentPolicy func(candidates []model.Groomer, appt *model.Appointment) string

// FirstAvailable assigns the first groomer in stable listing order. Not
// load-balanced; swap in a smarter policy where that matters.
func FirstAvailable(candidates []model.Groomer, _ *model.Appointment) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0].ID
}

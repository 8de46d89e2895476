package availability

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

func approved(id string, startMinute int, svc model.ServiceType) model.Appointment {
	return model.Appointment{ID: id, StartMinute: startMinute, Service: svc, Status: model.StatusApproved}
}

func TestCheck_OverlapRejected(t *testing.T) {
	// 10:00 FULL_GROOMING occupies 10:00-11:30; a 11:00 HAIRCUT overlaps.
	existing := []model.Appointment{approved("a1", 600, model.ServiceFullGrooming)}

	err := Check(660, model.ServiceHaircut, existing, "")
	if err == nil {
		t.Fatalf("expected conflict for overlapping slot")
	}
	var c *Conflict
	if !errors.As(err, &c) {
		t.Fatalf("expected *Conflict, got %T", err)
	}
	if c.AppointmentID != "a1" {
		t.Fatalf("expected conflict with a1, got %s", c.AppointmentID)
	}
}

func TestCheck_DisjointAccepted(t *testing.T) {
	// 10:00 FULL_GROOMING ends 11:30; a 11:35 NAIL_TRIM is clear.
	existing := []model.Appointment{approved("a1", 600, model.ServiceFullGrooming)}

	if err := Check(695, model.ServiceNailTrim, existing, ""); err != nil {
		t.Fatalf("unexpected conflict: %v", err)
	}
}

func TestCheck_AdjacentSlotsConflict(t *testing.T) {
	// The boundary test is inclusive: an appointment ending at 11:30 blocks
	// a new one starting exactly at 11:30.
	existing := []model.Appointment{approved("a1", 600, model.ServiceFullGrooming)}

	if err := Check(690, model.ServiceNailTrim, existing, ""); err == nil {
		t.Fatalf("expected conflict for back-to-back slot")
	}
	// Same at the front: new slot ending exactly where the existing starts.
	if err := Check(540, model.ServiceHaircut, existing, ""); err == nil {
		t.Fatalf("expected conflict for slot ending at existing start")
	}
}

func TestCheck_IgnoresNonApproved(t *testing.T) {
	existing := []model.Appointment{
		{ID: "p1", StartMinute: 600, Service: model.ServiceFullGrooming, Status: model.StatusPending},
		{ID: "r1", StartMinute: 600, Service: model.ServiceFullGrooming, Status: model.StatusRejected},
	}
	if err := Check(600, model.ServiceFullGrooming, existing, ""); err != nil {
		t.Fatalf("PENDING/REJECTED must not block: %v", err)
	}
}

func TestCheck_ExcludesOwnAppointment(t *testing.T) {
	existing := []model.Appointment{approved("a1", 600, model.ServiceHaircut)}
	if err := Check(630, model.ServiceHaircut, existing, "a1"); err != nil {
		t.Fatalf("rescheduled appointment must not conflict with itself: %v", err)
	}
}

func TestCheck_RandomizedNonOverlapProperty(t *testing.T) {
	// Build a schedule by admitting random slots one at a time; every pair of
	// admitted slots must be disjoint under the same predicate.
	rng := rand.New(rand.NewSource(42))
	services := []model.ServiceType{
		model.ServiceBath, model.ServiceHaircut, model.ServiceNailTrim, model.ServiceFullGrooming,
	}

	var admitted []model.Appointment
	for i := 0; i < 200; i++ {
		start := rng.Intn(20 * 60)
		svc := services[rng.Intn(len(services))]
		if Check(start, svc, admitted, "") == nil {
			admitted = append(admitted, approved("", start, svc))
		}
	}
	if len(admitted) < 2 {
		t.Fatalf("expected at least two admitted slots, got %d", len(admitted))
	}

	for i := range admitted {
		for j := range admitted {
			if i == j {
				continue
			}
			s1, e1 := admitted[i].StartMinute, admitted[i].EndMinute()
			s2, e2 := admitted[j].StartMinute, admitted[j].EndMinute()
			if !(e1 < s2 || s1 > e2) {
				t.Fatalf("admitted slots overlap: [%d,%d) and [%d,%d)", s1, e1, s2, e2)
			}
		}
	}
}

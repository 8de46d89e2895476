package model

import "time"

type Appointment struct {
	ID          string
	CustomerID  string
	PetID       string
	Service     ServiceType
	Date        time.Time // calendar day, UTC midnight
	StartMinute int       // minutes since midnight
	Address     string
	Location    *GeoPoint
	Notes       string
	Status      Status
	GroomerID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EndMinute is the exclusive end of the appointment's slot, derived from the
// service type's fixed duration.
func (a Appointment) EndMinute() int {
	return a.StartMinute + a.Service.DurationMinutes()
}

// DayRoutePlan is an explicit visiting-order override for one calendar date.
// At most one plan exists per date.
type DayRoutePlan struct {
	Date      time.Time
	OrderedID []string
	UpdatedAt time.Time
}

type GeoPoint struct {
	Lat float64
	Lng float64
}

type Pet struct {
	ID      string
	OwnerID string
	Name    string
	Breed   string
}

type Groomer struct {
	ID   string
	Name string
}

// CutRecord is an append-only grooming-history entry written when an
// appointment completes.
type CutRecord struct {
	ID            string
	AppointmentID string
	GroomerID     string
	PetName       string
	Service       ServiceType
	Date          time.Time
	StartMinute   int
	Notes         string
	CreatedAt     time.Time
}

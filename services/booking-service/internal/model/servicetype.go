package model

import "fmt"

// ServiceType identifies the grooming service requested for a visit. Each
// type carries a fixed duration; the duration is never user-supplied.
type ServiceType string

const (
	ServiceBath         ServiceType = "BATH"
	ServiceHaircut      ServiceType = "HAIRCUT"
	ServiceNailTrim     ServiceType = "NAIL_TRIM"
	ServiceFullGrooming ServiceType = "FULL_GROOMING"
)

var serviceDurations = map[ServiceType]int{
	ServiceBath:         45,
	ServiceHaircut:      60,
	ServiceNailTrim:     20,
	ServiceFullGrooming: 90,
}

func (s ServiceType) DurationMinutes() int {
	return serviceDurations[s]
}

func (s ServiceType) Valid() bool {
	_, ok := serviceDurations[s]
	return ok
}

func ParseServiceType(raw string) (ServiceType, error) {
	s := ServiceType(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown service type %q", raw)
	}
	return s, nil
}

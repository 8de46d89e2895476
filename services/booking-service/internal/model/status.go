package model

import "fmt"

// Status is the booking lifecycle state. Transitions are monotonic:
//
//	PENDING  -> APPROVED | REJECTED
//	APPROVED -> ON_ROUTE | REJECTED
//	ON_ROUTE -> COMPLETED
//
// REJECTED and COMPLETED are terminal. A reschedule resets any non-terminal
// appointment back to PENDING outside this table.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusOnRoute   Status = "ON_ROUTE"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusOnRoute, StatusRejected},
	StatusOnRoute:   {StatusCompleted},
	StatusCompleted: nil,
	StatusRejected:  nil,
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

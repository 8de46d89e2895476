package scheduling

import "errors"

var (
	// ErrNotFound means the referenced appointment, pet or plan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor does not own the referenced resource.
	ErrForbidden = errors.New("forbidden")

	// ErrOutOfCoverage means the address falls outside the service area.
	ErrOutOfCoverage = errors.New("address outside service area")

	// ErrSchedulingConflict means the requested slot overlaps an approved
	// appointment. Retryable with a different slot, never coerced silently.
	ErrSchedulingConflict = errors.New("scheduling conflict")
)

// IllegalOperation is a state-machine violation with a business-rule message
// meant for the end user.
type IllegalOperation struct {
	Reason string
}

func (e *IllegalOperation) Error() string {
	return e.Reason
}

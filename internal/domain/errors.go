package domain

import "errors"

// Validation errors: the request itself is malformed. Never retried.
var (
	ErrNoWeekdaySelected   = errors.New("no weekday selected")
	ErrInvalidDateRange    = errors.New("start date is after end date")
	ErrMissingSlotChoice   = errors.New("a selected weekday has no slot choice")
	ErrInvalidWeekday      = errors.New("unknown weekday name")
	ErrNoSessionsGenerated = errors.New("no bookable sessions match the requested pattern")
	ErrSessionElapsed      = errors.New("session has already started")
)

// Conflict errors: a state-machine precondition does not hold. The caller
// must refresh state before retrying.
var (
	ErrPackageNotPending       = errors.New("package is not pending")
	ErrPackageNotConfirmed     = errors.New("package is not confirmed")
	ErrPackageNotElapsed       = errors.New("package has sessions that have not finished yet")
	ErrPackageCancelled        = errors.New("package is cancelled")
	ErrPackageTerminal         = errors.New("package is already completed or cancelled")
	ErrSessionAlreadyCancelled = errors.New("session is already cancelled")
)

// Not-found errors.
var (
	ErrPackageNotFound  = errors.New("booking package not found")
	ErrSessionNotFound  = errors.New("package session not found")
	ErrScheduleNotFound = errors.New("field schedule not found")
	ErrFieldNotFound    = errors.New("field not found")
	ErrNotFound         = errors.New("record not found")
	ErrForbidden        = errors.New("access forbidden: you don't own this resource")
)

// ErrScheduleReleaseFailed wraps a failed release of a schedule record back
// to Available after a cancellation already succeeded. The cancellation
// stands; the release is retried out of band.
var ErrScheduleReleaseFailed = errors.New("failed to release schedule record")

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrNoWeekdaySelected, ErrInvalidDateRange, ErrMissingSlotChoice,
		ErrInvalidWeekday, ErrNoSessionsGenerated, ErrSessionElapsed,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err belongs to the conflict class.
func IsConflict(err error) bool {
	for _, e := range []error{
		ErrPackageNotPending, ErrPackageNotConfirmed, ErrPackageNotElapsed,
		ErrPackageCancelled, ErrPackageTerminal, ErrSessionAlreadyCancelled,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	for _, e := range []error{
		ErrPackageNotFound, ErrSessionNotFound, ErrScheduleNotFound,
		ErrFieldNotFound, ErrNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

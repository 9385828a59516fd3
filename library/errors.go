package library

import "errors"

// Domain errors. Engine operations report every failure as one of these
// (possibly wrapped for context); the presentation layer maps them to
// user-facing messages and nothing in the core prints anything itself.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrHolderNotFound  = errors.New("holder not found")
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPermissionDenied indicates the holder's role lacks the capability.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCapacityExceeded indicates the holder is at their concurrent-loan limit.
	ErrCapacityExceeded = errors.New("loan limit reached")

	// ErrAlreadyHeld indicates the holder already has the item on loan.
	ErrAlreadyHeld = errors.New("item already held by this holder")

	// ErrNotHeld indicates the item is not among the holder's active loans.
	ErrNotHeld = errors.New("item not held by this holder")

	// ErrUnavailable indicates the item is lent out, or available but held
	// for another holder at the head of its reservation queue.
	ErrUnavailable = errors.New("item unavailable")

	ErrDuplicateReservation = errors.New("reservation already exists")

	// ErrUnpaidFine indicates an outstanding balance blocks new borrows.
	ErrUnpaidFine = errors.New("outstanding fines must be paid first")

	// ErrDuplicateID indicates an add with an id that is already in use.
	ErrDuplicateID = errors.New("id already in use")

	// ErrStorageUnavailable indicates a persistence file could not be opened.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

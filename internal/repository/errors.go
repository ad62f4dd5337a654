// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the reservation coordinator to distinguish between
// different failure scenarios. For example, ErrTripNotFound indicates
// that a referenced trip schedule does not exist, while ErrConflict
// signals that an operation cannot proceed because of dependent
// records (e.g. deleting a trip that still has live bookings).
package repository

import "errors"

// ErrBusNotFound is returned when a referenced bus does not exist.
var ErrBusNotFound = errors.New("bus not found")

// ErrRouteNotFound is returned when a referenced route does not exist.
var ErrRouteNotFound = errors.New("route not found")

// ErrTripNotFound is returned when a referenced trip schedule does not
// exist, or does not belong to the bus named in the request.
var ErrTripNotFound = errors.New("trip schedule not found")

// ErrBookingNotFound is returned when a referenced booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmployeeNotFound is returned when a referenced employee does not exist.
var ErrEmployeeNotFound = errors.New("employee not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not assigned to, such as a staff member requesting
// the manifest of a bus they neither drive nor conduct. Handlers
// should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a trip schedule that
// still has non-cancelled bookings. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrVersionConflict is returned when a conditional write on a trip's
// ledger version matched zero rows, meaning a concurrent writer got
// there first. The operation is safe to retry with the same input.
var ErrVersionConflict = errors.New("concurrent ledger update")

// ErrUnavailable is returned when storage did not answer within the
// operation deadline. The operation is safe to retry.
var ErrUnavailable = errors.New("storage unavailable")

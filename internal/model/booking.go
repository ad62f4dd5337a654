package model

import "time"

// Payment statuses of a booking.  Pending moves to Completed when a
// payment is recorded; any status moves to Cancelled through the
// release path.  Cancelled is terminal: a cancelled booking is never
// reactivated, a new reservation must be created instead.
const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentCancelled = "Cancelled"
)

// Booking records a user's purchase of one or more seats on a trip.
// It is created by the reservation coordinator in lockstep with the
// seat ledger mutation: the set of reserved seats in a trip's ledger
// always equals the union of seats across that trip's non-Cancelled
// bookings.
//
// Fields:
//  ID            – primary key identifier.
//  BookingRef    – UUID returned to clients as the booking reference.
//  TripID        – trip schedule the seats belong to.
//  BusID         – bus running the trip (denormalised for lookups).
//  RouteID       – route of the trip (denormalised for lookups).
//  UserID        – account that made the booking.
//  Seats         – reserved seat numbers (non-empty).
//  TotalSeats    – len(Seats), persisted for reporting queries.
//  PaymentStatus – Pending, Completed or Cancelled.
//  TripDate      – date of the trip at booking time.
//  Payment       – optional payment bookkeeping details.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64          // bookings.id
	BookingRef    string          // bookings.booking_ref
	TripID        uint64          // bookings.trip_id
	BusID         uint64          // bookings.bus_id
	RouteID       uint64          // bookings.route_id
	UserID        uint64          // bookings.user_id
	Seats         []uint32        // booking_seats rows
	TotalSeats    uint32          // bookings.total_seats
	PaymentStatus string          // bookings.payment_status
	TripDate      time.Time       // bookings.trip_date
	Payment       *PaymentDetails // nullable payment columns
	CreatedAt     time.Time       // bookings.created_at
	UpdatedAt     time.Time       // bookings.updated_at
}

// PaymentDetails holds the bookkeeping fields recorded when a payment
// completes.  The system never talks to a payment gateway; it only
// stores what the caller reports.
type PaymentDetails struct {
	AmountCents   uint32 // bookings.amount_cents
	TransactionID string // bookings.transaction_id
	PaymentMethod string // bookings.payment_method
}

// CanTransitionTo reports whether a booking in status from may move to
// status to.  Completed can still be cancelled (refund handling is the
// caller's concern); Cancelled is terminal.
func CanTransitionTo(from, to string) bool {
	switch from {
	case PaymentPending:
		return to == PaymentCompleted || to == PaymentCancelled
	case PaymentCompleted:
		return to == PaymentCancelled
	default:
		return false
	}
}

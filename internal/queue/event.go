// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when seats are successfully
// reserved on a trip.  It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	BookingRef       string   `json:"booking_ref"`
	UserID           uint64   `json:"user_id"`
	TripID           uint64   `json:"trip_id"`
	BusID            uint64   `json:"bus_id"`
	RouteID          uint64   `json:"route_id"`
	StartPoint       string   `json:"start_point"`
	Destination      string   `json:"destination"`
	TripDate         string   `json:"trip_date"`
	DepartureTime    string   `json:"departure_time"`
	SeatNumbers      []uint32 `json:"seats"`
	PaymentStatus    string   `json:"payment_status"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and
// its seats are returned to the trip's pool.
type BookingCancelledEvent struct {
	BookingID   uint64   `json:"booking_id"`
	BookingRef  string   `json:"booking_ref"`
	UserID      uint64   `json:"user_id"`
	TripID      uint64   `json:"trip_id"`
	SeatNumbers []uint32 `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}

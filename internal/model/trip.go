package model

import "time"

// TripSchedule is one scheduled run of a bus along a route on a
// calendar date.  Each trip owns a seat ledger whose length equals the
// bus's seat capacity at creation time.  Seat state is mutated only by
// the reservation coordinator; operators may update the timing and
// route fields but never touch seats directly.
//
// The Version column is the concurrency token for the trip's seat
// ledger.  Every seat mutation is written conditionally on the version
// being unchanged and bumps it by one, which turns a lost-update race
// between two writers into a detectable conflict.
//
// Fields:
//  ID            – primary key identifier (used everywhere a trip is
//                  referenced: ledger lookups, bookings, HTTP paths).
//  BusID         – bus running this trip.
//  RouteID       – route being served.
//  TripDate      – calendar date of the run.
//  IsReturnTrip  – whether this is the return leg.
//  DepartureTime – scheduled departure.
//  ArrivalTime   – scheduled arrival.
//  PriceCents    – fare per seat in cents.
//  Version       – ledger concurrency token.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type TripSchedule struct {
	ID            uint64    // trip_schedules.id
	BusID         uint64    // trip_schedules.bus_id
	RouteID       uint64    // trip_schedules.route_id
	TripDate      time.Time // trip_schedules.trip_date
	IsReturnTrip  bool      // trip_schedules.is_return_trip
	DepartureTime time.Time // trip_schedules.departure_time
	ArrivalTime   time.Time // trip_schedules.arrival_time
	PriceCents    uint32    // trip_schedules.price_cents
	Version       uint32    // trip_schedules.version
	CreatedAt     time.Time // trip_schedules.created_at
	UpdatedAt     time.Time // trip_schedules.updated_at
}

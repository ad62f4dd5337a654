package model

import "time"

// Bus is a vehicle in the fleet.  A bus owns its trip schedules: when a
// bus is removed, its trips and their seat ledgers go with it.  The
// seat capacity fixes the length of every trip's seat ledger at the
// moment the trip is created.
//
// Fields:
//  ID                 – primary key identifier.
//  RegistrationNumber – unique plate number.
//  Model              – vehicle model description.
//  SeatCapacity       – number of seats; every trip ledger has exactly
//                       this many slots.
//  DriverID           – employee assigned as driver.
//  ConductorID        – employee assigned as conductor.
//  Owner              – name of the operating owner.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Bus struct {
	ID                 uint64    // buses.id
	RegistrationNumber string    // buses.registration_number
	Model              string    // buses.model
	SeatCapacity       uint32    // buses.seat_capacity
	DriverID           uint64    // buses.driver_id
	ConductorID        uint64    // buses.conductor_id
	Owner              string    // buses.owner
	CreatedAt          time.Time // buses.created_at
	UpdatedAt          time.Time // buses.updated_at
}

package model

import "time"

// Employee positions recognised by the system.  Only drivers and
// conductors are assigned to buses and may query trip manifests.
const (
	PositionDriver    = "Driver"
	PositionConductor = "Conductor"
)

// Employee describes a member of the operating staff.  Every bus
// references exactly one driver and one conductor.
//
// Fields:
//  ID           – primary key identifier.
//  EmployeeCode – unique code printed on the staff card.
//  Name         – full name.
//  Position     – Driver or Conductor.
//  Mobile       – contact number.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Employee struct {
	ID           uint64    // employees.id
	EmployeeCode string    // employees.employee_code
	Name         string    // employees.name
	Position     string    // employees.position
	Mobile       string    // employees.mobile
	CreatedAt    time.Time // employees.created_at
	UpdatedAt    time.Time // employees.updated_at
}

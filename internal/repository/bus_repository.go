package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// BusRepo encapsulates database operations for the fleet.  Buses own
// their trip schedules: the foreign key from trip_schedules cascades
// on delete, so removing a bus removes its trips and, through
// trip_seats, their seat ledgers.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo given a DB handle.
func NewBusRepo(db *sql.DB) *BusRepo {
	return &BusRepo{db: db}
}

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *BusRepo) DB() *sql.DB { return r.db }

// Create inserts a bus and returns its ID.  A duplicate registration
// number surfaces as ErrConflict.  The driver and conductor must be
// existing employees; a missing reference fails the foreign key.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO buses (registration_number, model, seat_capacity, driver_id, conductor_id, owner) VALUES (?,?,?,?,?,?)",
		b.RegistrationNumber, b.Model, b.SeatCapacity, b.DriverID, b.ConductorID, b.Owner)
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "1062") {
			return 0, ErrConflict
		}
		if strings.Contains(low, "1452") {
			return 0, ErrEmployeeNotFound
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a bus by id, returning ErrBusNotFound when no row
// exists.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	var b model.Bus
	err := r.db.QueryRowContext(ctx,
		"SELECT id, registration_number, model, seat_capacity, driver_id, conductor_id, owner, created_at, updated_at FROM buses WHERE id=?",
		id).Scan(&b.ID, &b.RegistrationNumber, &b.Model, &b.SeatCapacity, &b.DriverID, &b.ConductorID, &b.Owner, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByEmployee returns the bus the given employee drives or
// conducts.  Every employee is assigned to at most one bus.
func (r *BusRepo) GetByEmployee(ctx context.Context, employeeID uint64) (*model.Bus, error) {
	var b model.Bus
	err := r.db.QueryRowContext(ctx,
		"SELECT id, registration_number, model, seat_capacity, driver_id, conductor_id, owner, created_at, updated_at FROM buses WHERE driver_id=? OR conductor_id=? LIMIT 1",
		employeeID, employeeID).Scan(&b.ID, &b.RegistrationNumber, &b.Model, &b.SeatCapacity, &b.DriverID, &b.ConductorID, &b.Owner, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns the whole fleet ordered by id.
func (r *BusRepo) List(ctx context.Context) ([]model.Bus, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, registration_number, model, seat_capacity, driver_id, conductor_id, owner, created_at, updated_at FROM buses ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Bus, 0)
	for rows.Next() {
		var b model.Bus
		if err := rows.Scan(&b.ID, &b.RegistrationNumber, &b.Model, &b.SeatCapacity, &b.DriverID, &b.ConductorID, &b.Owner, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update changes the mutable fields of a bus.  The seat capacity is
// deliberately immutable: existing trip ledgers were sized from it at
// creation time.  Zero-valued arguments leave columns untouched.
func (r *BusRepo) Update(ctx context.Context, id uint64, busModel, owner string, driverID, conductorID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE buses SET
		   model        = COALESCE(NULLIF(?, ''), model),
		   owner        = COALESCE(NULLIF(?, ''), owner),
		   driver_id    = IF(? > 0, ?, driver_id),
		   conductor_id = IF(? > 0, ?, conductor_id)
		 WHERE id = ?`,
		busModel, owner, driverID, driverID, conductorID, conductorID, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1452") {
			return ErrEmployeeNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusNotFound
	}
	return nil
}

// Delete removes a bus.  Its trip schedules and seat ledgers cascade.
// Deletion is refused while any trip of the bus still has
// non-cancelled bookings, matching the trip deletion policy.
func (r *BusRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var live int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings b
		 JOIN trip_schedules t ON t.id = b.trip_id
		 WHERE t.bus_id = ? AND b.payment_status <> 'Cancelled'`,
		id).Scan(&live); err != nil {
		return err
	}
	if live > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM buses WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// TripRepo provides persistence for trip schedules and their seat
// ledgers.  Seat rows live in the trip_seats table, one row per
// numbered seat per trip.  All seat mutations happen through the *Tx
// methods inside a transaction opened by the reservation coordinator;
// the plain methods are read paths.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo constructs a TripRepo given a DB handle.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying handle so the coordinator can open
// transactions spanning trips and bookings.
func (r *TripRepo) DB() *sql.DB { return r.db }

const tripColumns = "id, bus_id, route_id, trip_date, is_return_trip, departure_time, arrival_time, price_cents, version, created_at, updated_at"

func scanTrip(row interface{ Scan(...interface{}) error }, t *model.TripSchedule) error {
	return row.Scan(&t.ID, &t.BusID, &t.RouteID, &t.TripDate, &t.IsReturnTrip,
		&t.DepartureTime, &t.ArrivalTime, &t.PriceCents, &t.Version, &t.CreatedAt, &t.UpdatedAt)
}

// CreateWithLedger inserts a trip schedule and initialises its seat
// ledger with capacity unreserved rows numbered 1..capacity, all in
// one transaction.  The ledger is sized exactly once, here; the bus's
// capacity at creation time is frozen into the trip.
func (r *TripRepo) CreateWithLedger(ctx context.Context, t *model.TripSchedule, capacity uint32) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO trip_schedules (bus_id, route_id, trip_date, is_return_trip, departure_time, arrival_time, price_cents) VALUES (?,?,?,?,?,?,?)",
		t.BusID, t.RouteID, t.TripDate, t.IsReturnTrip, t.DepartureTime, t.ArrivalTime, t.PriceCents)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// Bulk insert the ledger rows in a single statement.
	query := "INSERT INTO trip_seats (trip_id, seat_number) VALUES "
	args := make([]interface{}, 0, capacity*2)
	for n := uint32(1); n <= capacity; n++ {
		if n > 1 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, id, n)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByID fetches a trip schedule, returning ErrTripNotFound when no
// row exists.
func (r *TripRepo) GetByID(ctx context.Context, tripID uint64) (*model.TripSchedule, error) {
	var t model.TripSchedule
	err := scanTrip(r.db.QueryRowContext(ctx,
		"SELECT "+tripColumns+" FROM trip_schedules WHERE id=?", tripID), &t)
	if err == sql.ErrNoRows {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetForUpdateTx locks and loads the trip identified by (busID,
// tripID) within the transaction.  The row lock serialises every
// ledger writer for the trip; combined with the version token it
// prevents the read-modify-write race on the seat rows.  Returns
// ErrTripNotFound when the trip does not exist or belongs to a
// different bus.
func (r *TripRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, busID, tripID uint64) (*model.TripSchedule, error) {
	var t model.TripSchedule
	err := scanTrip(tx.QueryRowContext(ctx,
		"SELECT "+tripColumns+" FROM trip_schedules WHERE id=? AND bus_id=? FOR UPDATE", tripID, busID), &t)
	if err == sql.ErrNoRows {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIDForUpdateTx is GetForUpdateTx without the bus restriction,
// used by the cancellation path where only the trip id is known.
func (r *TripRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, tripID uint64) (*model.TripSchedule, error) {
	var t model.TripSchedule
	err := scanTrip(tx.QueryRowContext(ctx,
		"SELECT "+tripColumns+" FROM trip_schedules WHERE id=? FOR UPDATE", tripID), &t)
	if err == sql.ErrNoRows {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const seatColumns = "seat_number, is_reserved, reserved_by, booking_date"

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		var reservedBy sql.NullInt64
		var bookingDate sql.NullTime
		if err := rows.Scan(&s.SeatNumber, &s.IsReserved, &reservedBy, &bookingDate); err != nil {
			return nil, err
		}
		if reservedBy.Valid {
			uid := uint64(reservedBy.Int64)
			s.ReservedBy = &uid
		}
		if bookingDate.Valid {
			ts := bookingDate.Time
			s.BookingDate = &ts
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// Seats returns the trip's ledger rows ordered by seat number.  Read
// path for seat map views; callers needing a consistent snapshot for
// mutation use SeatsTx under the trip's row lock.
func (r *TripRepo) Seats(ctx context.Context, tripID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+seatColumns+" FROM trip_seats WHERE trip_id=? ORDER BY seat_number", tripID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// SeatsTx loads the ledger rows inside the coordinator's transaction.
func (r *TripRepo) SeatsTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.Seat, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+seatColumns+" FROM trip_seats WHERE trip_id=? ORDER BY seat_number", tripID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ReserveSeatsTx marks the given seats reserved by userID at the
// given timestamp.  The caller has already validated availability on
// an in-memory ledger built from SeatsTx under the trip's row lock.
func (r *TripRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, tripID uint64, seatNumbers []uint32, userID uint64, at time.Time) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	query := "UPDATE trip_seats SET is_reserved=1, reserved_by=?, booking_date=? WHERE trip_id=? AND seat_number IN (" + placeholders(len(seatNumbers)) + ")"
	args := []interface{}{userID, at, tripID}
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReleaseSeatsTx frees the given seats.  The is_reserved guard makes
// the statement idempotent: seats already free are left untouched.
func (r *TripRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, tripID uint64, seatNumbers []uint32) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	query := "UPDATE trip_seats SET is_reserved=0, reserved_by=NULL, booking_date=NULL WHERE trip_id=? AND seat_number IN (" + placeholders(len(seatNumbers)) + ") AND is_reserved=1"
	args := []interface{}{tripID}
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// BumpVersionTx advances the trip's ledger version conditionally on
// it being unchanged since the coordinator read it.  Zero rows
// affected means a concurrent writer committed in between; the caller
// must abort with ErrVersionConflict and the operation can be
// retried.
func (r *TripRepo) BumpVersionTx(ctx context.Context, tx *sql.Tx, tripID uint64, version uint32) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE trip_schedules SET version=version+1 WHERE id=? AND version=?", tripID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Update changes the timing and route fields of a trip.  Seat state
// is never written here; the coordinator owns it.  Zero values leave
// columns untouched.
func (r *TripRepo) Update(ctx context.Context, busID, tripID uint64, routeID uint64, tripDate, departure, arrival *time.Time, isReturn *bool) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if routeID > 0 {
		set = append(set, "route_id=?")
		args = append(args, routeID)
	}
	if tripDate != nil {
		set = append(set, "trip_date=?")
		args = append(args, *tripDate)
	}
	if departure != nil {
		set = append(set, "departure_time=?")
		args = append(args, *departure)
	}
	if arrival != nil {
		set = append(set, "arrival_time=?")
		args = append(args, *arrival)
	}
	if isReturn != nil {
		set = append(set, "is_return_trip=?")
		args = append(args, *isReturn)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, tripID, busID)
	res, err := r.db.ExecContext(ctx,
		"UPDATE trip_schedules SET "+strings.Join(set, ", ")+" WHERE id=? AND bus_id=?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTripNotFound
	}
	return nil
}

// Delete removes a trip schedule and its ledger.  Deletion is refused
// with ErrConflict while any non-cancelled booking references the
// trip; callers must cancel those bookings first so their seats flow
// back through the release path.
func (r *TripRepo) Delete(ctx context.Context, busID, tripID uint64) error {
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
		"SELECT COUNT(*) FROM bookings WHERE trip_id=? AND payment_status <> 'Cancelled'",
		tripID).Scan(&live); err != nil {
		return err
	}
	if live > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM trip_schedules WHERE id=? AND bus_id=?", tripID, busID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTripNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// TripSummary is a trip joined with its route and bus for listing and
// search responses, including the remaining seat count computed from
// the ledger at read time.
type TripSummary struct {
	TripID             uint64    `json:"trip_id"`
	BusID              uint64    `json:"bus_id"`
	RegistrationNumber string    `json:"registration_number"`
	RouteID            uint64    `json:"route_id"`
	StartPoint         string    `json:"start_point"`
	EndPoint           string    `json:"end_point"`
	TripDate           time.Time `json:"trip_date"`
	IsReturnTrip       bool      `json:"is_return_trip"`
	DepartureTime      time.Time `json:"departure_time"`
	ArrivalTime        time.Time `json:"arrival_time"`
	PriceCents         uint32    `json:"price_cents"`
	AvailableSeats     int       `json:"available_seats"`
}

const summarySelect = `SELECT t.id, t.bus_id, b.registration_number, t.route_id, r.start_point, r.end_point,
       t.trip_date, t.is_return_trip, t.departure_time, t.arrival_time, t.price_cents,
       (SELECT COUNT(*) FROM trip_seats s WHERE s.trip_id = t.id AND s.is_reserved = 0) AS available_seats
  FROM trip_schedules t
  JOIN buses b ON b.id = t.bus_id
  JOIN routes r ON r.id = t.route_id`

func scanSummaries(rows *sql.Rows) ([]TripSummary, error) {
	defer rows.Close()
	out := make([]TripSummary, 0)
	for rows.Next() {
		var s TripSummary
		if err := rows.Scan(&s.TripID, &s.BusID, &s.RegistrationNumber, &s.RouteID, &s.StartPoint, &s.EndPoint,
			&s.TripDate, &s.IsReturnTrip, &s.DepartureTime, &s.ArrivalTime, &s.PriceCents, &s.AvailableSeats); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListAll returns every trip summary across the fleet, ordered by
// date then departure.
func (r *TripRepo) ListAll(ctx context.Context) ([]TripSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+" ORDER BY t.trip_date, t.departure_time")
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// SearchAvailable returns trips whose route matches the start and
// destination names (case-insensitive) on the given date.  An empty
// result is not an error.
func (r *TripRepo) SearchAvailable(ctx context.Context, startPoint, endPoint string, date time.Time) ([]TripSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		summarySelect+` WHERE LOWER(r.start_point) = LOWER(?) AND LOWER(r.end_point) = LOWER(?) AND t.trip_date = ?
		 ORDER BY t.departure_time`,
		strings.TrimSpace(startPoint), strings.TrimSpace(endPoint), date)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListByBusAndDate returns the day manifest for one bus: every trip
// it runs on the given date.
func (r *TripRepo) ListByBusAndDate(ctx context.Context, busID uint64, date time.Time) ([]TripSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		summarySelect+" WHERE t.bus_id = ? AND t.trip_date = ? ORDER BY t.departure_time",
		busID, date)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListByDate returns all trips across all buses on the given date.
func (r *TripRepo) ListByDate(ctx context.Context, date time.Time) ([]TripSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		summarySelect+" WHERE t.trip_date = ? ORDER BY t.departure_time",
		date)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// placeholders returns n comma separated "?" marks for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

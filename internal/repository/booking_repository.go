package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// BookingRepo provides CRUD operations for bookings and their seat
// sets.  A booking groups together one or more seats on a particular
// trip for a user.  Seat numbers booked under a booking are stored in
// the booking_seats table.  All timestamp fields are assumed to be
// stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, booking_ref, trip_id, bus_id, route_id, user_id, total_seats, payment_status, trip_date, amount_cents, transaction_id, payment_method, created_at, updated_at"

func scanBooking(row interface{ Scan(...interface{}) error }, b *model.Booking) error {
	var amount sql.NullInt64
	var txnID, method sql.NullString
	if err := row.Scan(&b.ID, &b.BookingRef, &b.TripID, &b.BusID, &b.RouteID, &b.UserID,
		&b.TotalSeats, &b.PaymentStatus, &b.TripDate, &amount, &txnID, &method,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if amount.Valid || txnID.Valid || method.Valid {
		b.Payment = &model.PaymentDetails{
			AmountCents:   uint32(amount.Int64),
			TransactionID: txnID.String,
			PaymentMethod: method.String,
		}
	}
	return nil
}

// CreateTx inserts a booking and its seat rows within the scope of an
// existing transaction.  It populates the generated ID on the
// provided record.  The caller must commit or rollback the
// transaction; the booking and the ledger mutation it mirrors either
// both land or neither does.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var amount interface{}
	var txnID, method interface{}
	if b.Payment != nil {
		amount = b.Payment.AmountCents
		txnID = b.Payment.TransactionID
		method = b.Payment.PaymentMethod
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (booking_ref, trip_id, bus_id, route_id, user_id, total_seats, payment_status, trip_date, amount_cents, transaction_id, payment_method) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		b.BookingRef, b.TripID, b.BusID, b.RouteID, b.UserID, b.TotalSeats, b.PaymentStatus, b.TripDate, amount, txnID, method)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if len(b.Seats) == 0 {
		return nil
	}
	query := "INSERT INTO booking_seats (booking_id, trip_id, seat_number) VALUES "
	args := make([]interface{}, 0, len(b.Seats)*3)
	for i, n := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, b.ID, b.TripID, n)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a booking with its seat set, or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=?", id), &b)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	seats, err := r.seatsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Seats = seats
	return &b, nil
}

// GetForUpdateTx locks and loads a booking and its seats inside the
// cancellation transaction.  Returns ErrBookingNotFound when absent.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? FOR UPDATE", id), &b)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT seat_number FROM booking_seats WHERE booking_id=? ORDER BY seat_number", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatusTx changes a booking's payment status inside a
// transaction.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET payment_status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// RecordPaymentTx marks a booking Completed and stores the payment
// bookkeeping columns.
func (r *BookingRepo) RecordPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, p model.PaymentDetails) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET payment_status=?, amount_cents=?, transaction_id=?, payment_method=? WHERE id=?",
		model.PaymentCompleted, p.AmountCents, p.TransactionID, p.PaymentMethod, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns all bookings of a user, newest first, with their
// seat sets populated in a single additional query.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// ListAll returns every booking, newest first.  Admin listing only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// ListByBusAndDate returns bookings for one bus on one trip date.
func (r *BookingRepo) ListByBusAndDate(ctx context.Context, busID uint64, date time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE bus_id=? AND trip_date=? ORDER BY created_at DESC",
		busID, date)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// SeatPayment cross-references one reserved seat with the booking that
// holds it, for staff manifest views.
type SeatPayment struct {
	SeatNumber    uint32 `json:"seat_number"`
	PaymentStatus string `json:"payment_status"`
	Username      string `json:"username"`
}

// SeatPaymentsByTrip maps seat numbers to the payment status and
// holder of the non-cancelled booking covering them.  Seats reserved
// in the ledger with no live booking row are a data-integrity
// condition the caller reports as status "Unknown".
func (r *BookingRepo) SeatPaymentsByTrip(ctx context.Context, tripID uint64) (map[uint32]SeatPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bs.seat_number, b.payment_status, u.username
		   FROM booking_seats bs
		   JOIN bookings b ON b.id = bs.booking_id
		   JOIN users u ON u.id = b.user_id
		  WHERE bs.trip_id = ? AND b.payment_status <> 'Cancelled'`,
		tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint32]SeatPayment)
	for rows.Next() {
		var sp SeatPayment
		if err := rows.Scan(&sp.SeatNumber, &sp.PaymentStatus, &sp.Username); err != nil {
			return nil, err
		}
		out[sp.SeatNumber] = sp
	}
	return out, rows.Err()
}

// collect scans booking rows and populates each booking's seat set
// with one IN query.
func (r *BookingRepo) collect(ctx context.Context, rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		b.Seats = []uint32{}
		index[b.ID] = len(bookings)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}
	args := make([]interface{}, 0, len(bookings))
	for _, b := range bookings {
		args = append(args, b.ID)
	}
	srows, err := r.db.QueryContext(ctx,
		"SELECT booking_id, seat_number FROM booking_seats WHERE booking_id IN ("+placeholders(len(args))+") ORDER BY booking_id, seat_number",
		args...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var id uint64
		var n uint32
		if err := srows.Scan(&id, &n); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			bookings[i].Seats = append(bookings[i].Seats, n)
		}
	}
	return bookings, srows.Err()
}

func (r *BookingRepo) seatsFor(ctx context.Context, bookingID uint64) ([]uint32, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT seat_number FROM booking_seats WHERE booking_id=? ORDER BY seat_number", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]uint32, 0)
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}

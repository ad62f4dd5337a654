package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

const (
	tripColsQuery    = `SELECT (.+) FROM trip_schedules WHERE id=\? AND bus_id=\? FOR UPDATE`
	tripByIDQuery    = `SELECT (.+) FROM trip_schedules WHERE id=\? FOR UPDATE`
	busQuery         = `SELECT (.+) FROM buses WHERE id=\?`
	seatsQuery       = `SELECT (.+) FROM trip_seats WHERE trip_id=\? ORDER BY seat_number`
	reserveExec      = `UPDATE trip_seats SET is_reserved=1`
	releaseExec      = `UPDATE trip_seats SET is_reserved=0`
	bumpExec         = `UPDATE trip_schedules SET version=version\+1 WHERE id=\? AND version=\?`
	bookingInsert    = `INSERT INTO bookings`
	bookingSeatsIns  = `INSERT INTO booking_seats`
	bookingForUpdate = `SELECT (.+) FROM bookings WHERE id=\? FOR UPDATE`
	bookingSeatsSel  = `SELECT seat_number FROM booking_seats WHERE booking_id=\? ORDER BY seat_number`
	statusExec       = `UPDATE bookings SET payment_status=\? WHERE id=\?`
)

func newCoordinator(t *testing.T) (*ReservationCoordinator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rc := NewReservationCoordinator(db,
		repository.NewTripRepo(db),
		repository.NewBookingRepo(db),
		repository.NewBusRepo(db))
	return rc, mock
}

func tripRows(version uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "bus_id", "route_id", "trip_date", "is_return_trip",
		"departure_time", "arrival_time", "price_cents", "version", "created_at", "updated_at",
	}).AddRow(10, 2, 3, now, false, now, now.Add(4*time.Hour), 2500, version, now, now)
}

func busRows(capacity uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "registration_number", "model", "seat_capacity",
		"driver_id", "conductor_id", "owner", "created_at", "updated_at",
	}).AddRow(2, "BA-2-KHA-9823", "Tata LP 713", capacity, 4, 5, "Sajha Yatayat", now, now)
}

func seatRows(capacity uint32, reserved ...uint32) *sqlmock.Rows {
	taken := make(map[uint32]bool, len(reserved))
	for _, n := range reserved {
		taken[n] = true
	}
	rows := sqlmock.NewRows([]string{"seat_number", "is_reserved", "reserved_by", "booking_date"})
	now := time.Now().UTC()
	for n := uint32(1); n <= capacity; n++ {
		if taken[n] {
			rows.AddRow(n, true, 99, now)
		} else {
			rows.AddRow(n, false, nil, nil)
		}
	}
	return rows
}

func bookingRows(id uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "booking_ref", "trip_id", "bus_id", "route_id", "user_id",
		"total_seats", "payment_status", "trip_date",
		"amount_cents", "transaction_id", "payment_method", "created_at", "updated_at",
	}).AddRow(id, "5f0c9d2e-0000-0000-0000-000000000000", 10, 2, 3, 7, 2, status, now, nil, nil, nil, now, now)
}

func TestReserveCommitsLedgerAndBookingTogether(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(3))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectQuery(seatsQuery).WithArgs(uint64(10)).WillReturnRows(seatRows(40))
	mock.ExpectExec(reserveExec).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(bumpExec).WithArgs(uint64(10), uint32(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bookingInsert).WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(bookingSeatsIns).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	booking, err := rc.Reserve(context.Background(), 2, 10, []uint32{1, 2}, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), booking.ID)
	assert.NotEmpty(t, booking.BookingRef)
	assert.Equal(t, []uint32{1, 2}, booking.Seats)
	assert.Equal(t, model.PaymentPending, booking.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveWithPaymentIsCompleted(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(0))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectQuery(seatsQuery).WithArgs(uint64(10)).WillReturnRows(seatRows(40))
	mock.ExpectExec(reserveExec).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bumpExec).WithArgs(uint64(10), uint32(0)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bookingInsert).WillReturnResult(sqlmock.NewResult(56, 1))
	mock.ExpectExec(bookingSeatsIns).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := rc.Reserve(context.Background(), 2, 10, []uint32{5}, 7, &model.PaymentDetails{
		AmountCents:   2500,
		TransactionID: "txn-1",
		PaymentMethod: "esewa",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, booking.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeatConflictWritesNothing(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(3))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectQuery(seatsQuery).WithArgs(uint64(10)).WillReturnRows(seatRows(40, 3))
	mock.ExpectRollback()

	_, err := rc.Reserve(context.Background(), 2, 10, []uint32{3, 4}, 7, nil)
	require.Error(t, err)
	var conflict *model.SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []uint32{3}, conflict.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveVersionConflictAbortsTx(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(3))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectQuery(seatsQuery).WithArgs(uint64(10)).WillReturnRows(seatRows(40))
	mock.ExpectExec(reserveExec).WillReturnResult(sqlmock.NewResult(0, 1))
	// Concurrent writer advanced the version between read and write.
	mock.ExpectExec(bumpExec).WithArgs(uint64(10), uint32(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := rc.Reserve(context.Background(), 2, 10, []uint32{1}, 7, nil)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveBookingInsertFailureRollsBackLedger(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(3))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectQuery(seatsQuery).WithArgs(uint64(10)).WillReturnRows(seatRows(40))
	mock.ExpectExec(reserveExec).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bumpExec).WithArgs(uint64(10), uint32(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(bookingInsert).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := rc.Reserve(context.Background(), 2, 10, []uint32{1}, 7, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveEmptySeatListIsValidationError(t *testing.T) {
	rc, _ := newCoordinator(t)

	_, err := rc.Reserve(context.Background(), 2, 10, []uint32{0, 0}, 7, nil)
	var invalid *ValidationError
	require.True(t, errors.As(err, &invalid))
}

func TestReserveOutOfRangeSeatIsValidationError(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(10, 2).WillReturnRows(tripRows(3))
	mock.ExpectQuery(busQuery).WithArgs(uint64(2)).WillReturnRows(busRows(40))
	mock.ExpectRollback()

	_, err := rc.Reserve(context.Background(), 2, 10, []uint32{41}, 7, nil)
	var invalid *ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveUnknownTrip(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(tripColsQuery).WithArgs(99, 2).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := rc.Reserve(context.Background(), 2, 99, []uint32{1}, 7, nil)
	assert.ErrorIs(t, err, repository.ErrTripNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReleasesSeatsAndMarksCancelled(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(55).WillReturnRows(bookingRows(55, model.PaymentPending))
	mock.ExpectQuery(bookingSeatsSel).WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1).AddRow(2))
	mock.ExpectQuery(tripByIDQuery).WithArgs(uint64(10)).WillReturnRows(tripRows(4))
	mock.ExpectExec(releaseExec).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(bumpExec).WithArgs(uint64(10), uint32(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(statusExec).WithArgs(model.PaymentCancelled, uint64(55)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, rc.Cancel(context.Background(), 55))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyCancelledIsNoOp(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(55).WillReturnRows(bookingRows(55, model.PaymentCancelled))
	mock.ExpectQuery(bookingSeatsSel).WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1).AddRow(2))
	mock.ExpectRollback()

	require.NoError(t, rc.Cancel(context.Background(), 55))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrphanedTripStillCancelsBooking(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(55).WillReturnRows(bookingRows(55, model.PaymentCompleted))
	mock.ExpectQuery(bookingSeatsSel).WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1))
	// The trip was deleted out from under the booking.
	mock.ExpectQuery(tripByIDQuery).WithArgs(uint64(10)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(statusExec).WithArgs(model.PaymentCancelled, uint64(55)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, rc.Cancel(context.Background(), 55))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelUnknownBooking(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(99).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := rc.Cancel(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePaymentOnPendingBooking(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(55).WillReturnRows(bookingRows(55, model.PaymentPending))
	mock.ExpectQuery(bookingSeatsSel).WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1))
	mock.ExpectExec(`UPDATE bookings SET payment_status=\?, amount_cents=\?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := rc.CompletePayment(context.Background(), 55, model.PaymentDetails{
		AmountCents:   2500,
		TransactionID: "txn-9",
		PaymentMethod: "khalti",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePaymentOnCancelledBookingConflicts(t *testing.T) {
	rc, mock := newCoordinator(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingForUpdate).WithArgs(55).WillReturnRows(bookingRows(55, model.PaymentCancelled))
	mock.ExpectQuery(bookingSeatsSel).WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1))
	mock.ExpectRollback()

	err := rc.CompletePayment(context.Background(), 55, model.PaymentDetails{AmountCents: 1, TransactionID: "x"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

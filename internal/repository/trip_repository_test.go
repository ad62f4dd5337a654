package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

func newTripRepo(t *testing.T) (*TripRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTripRepo(db), mock
}

func mockTripRows(version uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "bus_id", "route_id", "trip_date", "is_return_trip",
		"departure_time", "arrival_time", "price_cents", "version", "created_at", "updated_at",
	}).AddRow(10, 2, 3, now, false, now, now.Add(4*time.Hour), 2500, version, now, now)
}

func TestCreateWithLedgerInsertsOneRowPerSeat(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO trip_schedules`).WillReturnResult(sqlmock.NewResult(10, 1))
	// One bulk statement carrying (trip_id, seat_number) per seat.
	mock.ExpectExec(`INSERT INTO trip_seats \(trip_id, seat_number\) VALUES `).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	now := time.Now().UTC()
	trip := &model.TripSchedule{
		BusID:         2,
		RouteID:       3,
		TripDate:      now,
		DepartureTime: now,
		ArrivalTime:   now.Add(4 * time.Hour),
		PriceCents:    2500,
	}
	id, err := repo.CreateWithLedger(context.Background(), trip, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateTxLocksTripRow(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM trip_schedules WHERE id=\? AND bus_id=\? FOR UPDATE`).
		WithArgs(10, 2).
		WillReturnRows(mockTripRows(7))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	require.NoError(t, err)
	trip, err := repo.GetForUpdateTx(context.Background(), tx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), trip.ID)
	assert.Equal(t, uint32(7), trip.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateTxWrongBusIsNotFound(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM trip_schedules WHERE id=\? AND bus_id=\? FOR UPDATE`).
		WithArgs(10, 99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	require.NoError(t, err)
	_, err = repo.GetForUpdateTx(context.Background(), tx, 99, 10)
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestSeatsScansNullableColumns(t *testing.T) {
	repo, mock := newTripRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM trip_seats WHERE trip_id=\? ORDER BY seat_number`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "is_reserved", "reserved_by", "booking_date"}).
			AddRow(1, false, nil, nil).
			AddRow(2, true, 7, now))

	seats, err := repo.Seats(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, seats, 2)

	assert.False(t, seats[0].IsReserved)
	assert.Nil(t, seats[0].ReservedBy)
	assert.Nil(t, seats[0].BookingDate)

	assert.True(t, seats[1].IsReserved)
	require.NotNil(t, seats[1].ReservedBy)
	assert.Equal(t, uint64(7), *seats[1].ReservedBy)
	require.NotNil(t, seats[1].BookingDate)
}

func TestBumpVersionTxDetectsConcurrentWriter(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE trip_schedules SET version=version\+1 WHERE id=\? AND version=\?`).
		WithArgs(uint64(10), uint32(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.BumpVersionTx(context.Background(), tx, 10, 7)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestBumpVersionTxAdvances(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE trip_schedules SET version=version\+1 WHERE id=\? AND version=\?`).
		WithArgs(uint64(10), uint32(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, repo.BumpVersionTx(context.Background(), tx, 10, 7))
}

func TestDeleteRefusedWhileLiveBookingsExist(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE trip_id=\?`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 2, 10)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesTripWithoutLiveBookings(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE trip_id=\?`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM trip_schedules WHERE id=\? AND bus_id=\?`).
		WithArgs(10, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(context.Background(), 2, 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsTxOnlyTouchesReservedRows(t *testing.T) {
	repo, mock := newTripRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE trip_seats SET is_reserved=0, reserved_by=NULL, booking_date=NULL WHERE trip_id=\? AND seat_number IN \(\?,\?\) AND is_reserved=1`).
		WithArgs(uint64(10), uint32(1), uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, repo.ReleaseSeatsTx(context.Background(), tx, 10, []uint32{1, 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeatLedgerStartsAllFree(t *testing.T) {
	l := NewSeatLedger(40)
	assert.Equal(t, 40, l.AvailableCount())
	assert.Empty(t, l.ReservedSeatNumbers())

	s, ok := l.Seat(1)
	require.True(t, ok)
	assert.False(t, s.IsReserved)
	s, ok = l.Seat(40)
	require.True(t, ok)
	assert.Equal(t, uint32(40), s.SeatNumber)

	_, ok = l.Seat(41)
	assert.False(t, ok)
}

func TestReserveThenOverlapReportsFullConflictSet(t *testing.T) {
	l := NewSeatLedger(40)
	now := time.Now().UTC()

	require.NoError(t, l.Reserve([]uint32{1, 2, 3}, 7, now))
	assert.Equal(t, 37, l.AvailableCount())
	assert.Equal(t, []uint32{1, 2, 3}, l.ReservedSeatNumbers())

	err := l.Reserve([]uint32{3, 4}, 8, now)
	require.Error(t, err)
	conflict, ok := err.(*SeatConflictError)
	require.True(t, ok)
	assert.Equal(t, []uint32{3}, conflict.Seats)

	// All-or-nothing: seat 4 must still be free after the failed attempt.
	s, ok := l.Seat(4)
	require.True(t, ok)
	assert.False(t, s.IsReserved)
	assert.Equal(t, 37, l.AvailableCount())
}

func TestReserveRecordsHolderAndTimestamp(t *testing.T) {
	l := NewSeatLedger(10)
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	require.NoError(t, l.Reserve([]uint32{5}, 42, at))

	s, ok := l.Seat(5)
	require.True(t, ok)
	assert.True(t, s.IsReserved)
	require.NotNil(t, s.ReservedBy)
	assert.Equal(t, uint64(42), *s.ReservedBy)
	require.NotNil(t, s.BookingDate)
	assert.Equal(t, at, *s.BookingDate)
}

func TestCheckAvailabilityReportsAllConflictsInRequestOrder(t *testing.T) {
	l := NewSeatLedger(5)
	require.NoError(t, l.Reserve([]uint32{2, 4}, 1, time.Now().UTC()))

	ok, conflicting := l.CheckAvailability([]uint32{4, 9, 2, 3})
	assert.False(t, ok)
	assert.Equal(t, []uint32{4, 9, 2}, conflicting)

	ok, conflicting = l.CheckAvailability([]uint32{1, 3, 5})
	assert.True(t, ok)
	assert.Empty(t, conflicting)
}

func TestReserveOutOfRangeSeatConflicts(t *testing.T) {
	l := NewSeatLedger(40)

	err := l.Reserve([]uint32{41}, 1, time.Now().UTC())
	require.Error(t, err)
	conflict, ok := err.(*SeatConflictError)
	require.True(t, ok)
	assert.Equal(t, []uint32{41}, conflict.Seats)
	assert.Equal(t, 40, l.AvailableCount())
}

func TestReleaseIsIdempotentAndRestoresCapacity(t *testing.T) {
	l := NewSeatLedger(40)
	now := time.Now().UTC()
	require.NoError(t, l.Reserve([]uint32{1, 2, 3}, 7, now))

	freed := l.Release([]uint32{1, 2, 3})
	assert.Equal(t, []uint32{1, 2, 3}, freed)
	assert.Equal(t, 40, l.AvailableCount())

	// Second release of the same seats frees nothing and changes nothing.
	freed = l.Release([]uint32{1, 2, 3})
	assert.Empty(t, freed)
	assert.Equal(t, 40, l.AvailableCount())

	// Unknown seat numbers are skipped, not an error.
	freed = l.Release([]uint32{99})
	assert.Empty(t, freed)
}

func TestReleasePartiallyReservedSet(t *testing.T) {
	l := NewSeatLedger(10)
	require.NoError(t, l.Reserve([]uint32{2, 3}, 1, time.Now().UTC()))

	freed := l.Release([]uint32{1, 2})
	assert.Equal(t, []uint32{2}, freed)
	assert.Equal(t, []uint32{3}, l.ReservedSeatNumbers())
}

func TestLedgerFromSeatsIndexesExistingRows(t *testing.T) {
	uid := uint64(9)
	now := time.Now().UTC()
	rows := []Seat{
		{SeatNumber: 1},
		{SeatNumber: 2, IsReserved: true, ReservedBy: &uid, BookingDate: &now},
		{SeatNumber: 3},
	}
	l := LedgerFromSeats(rows)

	assert.Equal(t, 2, l.AvailableCount())
	assert.Equal(t, []uint32{2}, l.ReservedSeatNumbers())

	err := l.Reserve([]uint32{2}, 1, now)
	require.Error(t, err)
}

func TestSeatConflictErrorNamesSeats(t *testing.T) {
	err := &SeatConflictError{Seats: []uint32{3, 7}}
	assert.Contains(t, err.Error(), "3, 7")
}

func TestDedupeSeatNumbers(t *testing.T) {
	cases := []struct {
		name string
		in   []uint32
		want []uint32
	}{
		{"preserves first occurrence", []uint32{3, 1, 3, 2, 1}, []uint32{3, 1, 2}},
		{"drops zeros", []uint32{0, 1, 0}, []uint32{1}},
		{"empty input", nil, []uint32{}},
		{"all duplicates", []uint32{5, 5, 5}, []uint32{5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DedupeSeatNumbers(tc.in))
		})
	}
}

package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Seat is one slot in a trip's seat ledger.  ReservedBy and
// BookingDate are non-nil exactly when IsReserved is true.
//
// Fields:
//  SeatNumber  – position in the bus, 1..capacity, unique per trip.
//  IsReserved  – whether the seat is taken.
//  ReservedBy  – user holding the seat (nil when free).
//  BookingDate – when the seat was reserved (nil when free).
type Seat struct {
	SeatNumber  uint32     // trip_seats.seat_number
	IsReserved  bool       // trip_seats.is_reserved
	ReservedBy  *uint64    // trip_seats.reserved_by (nullable)
	BookingDate *time.Time // trip_seats.booking_date (nullable)
}

// SeatConflictError reports the full set of requested seats that could
// not be reserved, in the order the caller supplied them.  A seat
// conflicts when it is outside the ledger or already reserved.
type SeatConflictError struct {
	Seats []uint32
}

func (e *SeatConflictError) Error() string {
	parts := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return fmt.Sprintf("seats %s are already reserved or invalid", strings.Join(parts, ", "))
}

// SeatLedger is the authoritative per-trip record of which numbered
// seats are reserved.  It is a pure in-memory structure: the
// reservation coordinator loads the ledger rows inside a transaction,
// applies the mutation here and writes the changed rows back.  All
// methods either mutate every requested seat or none of them.
type SeatLedger struct {
	seats []Seat
	index map[uint32]int
}

// NewSeatLedger produces a ledger of capacity slots numbered
// 1..capacity, all unreserved.  It is called exactly once, when a trip
// schedule is created.
func NewSeatLedger(capacity uint32) *SeatLedger {
	seats := make([]Seat, 0, capacity)
	for n := uint32(1); n <= capacity; n++ {
		seats = append(seats, Seat{SeatNumber: n})
	}
	return LedgerFromSeats(seats)
}

// LedgerFromSeats builds a ledger over an existing slice of seat rows,
// as loaded from storage.  The slice is used directly, not copied.
func LedgerFromSeats(seats []Seat) *SeatLedger {
	idx := make(map[uint32]int, len(seats))
	for i, s := range seats {
		idx[s.SeatNumber] = i
	}
	return &SeatLedger{seats: seats, index: idx}
}

// CheckAvailability reports whether every requested seat can be
// reserved.  A seat is conflicting when it is not present in the
// ledger or already reserved.  All requested seats are checked and the
// full conflicting set is returned in the order supplied by the
// caller.  No side effects.
func (l *SeatLedger) CheckAvailability(requested []uint32) (bool, []uint32) {
	var conflicting []uint32
	for _, n := range requested {
		i, ok := l.index[n]
		if !ok || l.seats[i].IsReserved {
			conflicting = append(conflicting, n)
		}
	}
	return len(conflicting) == 0, conflicting
}

// Reserve marks the requested seats as taken by userID at the given
// timestamp.  If any seat conflicts, a *SeatConflictError naming every
// conflicting seat is returned and nothing is mutated.
func (l *SeatLedger) Reserve(requested []uint32, userID uint64, at time.Time) error {
	ok, conflicting := l.CheckAvailability(requested)
	if !ok {
		return &SeatConflictError{Seats: conflicting}
	}
	uid := userID
	ts := at
	for _, n := range requested {
		i := l.index[n]
		l.seats[i].IsReserved = true
		l.seats[i].ReservedBy = &uid
		l.seats[i].BookingDate = &ts
	}
	return nil
}

// Release frees the given seats.  Seat numbers not present in the
// ledger or already free are silently skipped, so releasing twice
// leaves the same end state as releasing once.  The seats actually
// freed are returned.
func (l *SeatLedger) Release(seatNumbers []uint32) []uint32 {
	freed := make([]uint32, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		i, ok := l.index[n]
		if !ok || !l.seats[i].IsReserved {
			continue
		}
		l.seats[i].IsReserved = false
		l.seats[i].ReservedBy = nil
		l.seats[i].BookingDate = nil
		freed = append(freed, n)
	}
	return freed
}

// AvailableCount returns the number of unreserved slots.
func (l *SeatLedger) AvailableCount() int {
	n := 0
	for _, s := range l.seats {
		if !s.IsReserved {
			n++
		}
	}
	return n
}

// ReservedSeatNumbers returns the numbers of all reserved seats in
// ascending order.
func (l *SeatLedger) ReservedSeatNumbers() []uint32 {
	var out []uint32
	for _, s := range l.seats {
		if s.IsReserved {
			out = append(out, s.SeatNumber)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Seats exposes the underlying slots for read-only seat map views.
func (l *SeatLedger) Seats() []Seat {
	return l.seats
}

// Seat returns the slot with the given number, if present.
func (l *SeatLedger) Seat(number uint32) (Seat, bool) {
	i, ok := l.index[number]
	if !ok {
		return Seat{}, false
	}
	return l.seats[i], true
}

// DedupeSeatNumbers removes duplicate seat numbers preserving the
// first occurrence.  Zero seat numbers are dropped because the ledger
// starts at 1.
func DedupeSeatNumbers(in []uint32) []uint32 {
	out := make([]uint32, 0, len(in))
	seen := make(map[uint32]struct{}, len(in))
	for _, n := range in {
		if n == 0 {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

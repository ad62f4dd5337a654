// Package service contains the reservation coordinator, the component
// that enforces atomic seat-allocation semantics.  Everything here
// runs against storage through database/sql transactions; HTTP
// plumbing and event publishing live in the layers above.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// opTimeout bounds every storage round trip.  A deadline hit surfaces
// as repository.ErrUnavailable, which the caller may retry.
const opTimeout = 5 * time.Second

// ValidationError reports a malformed reservation request: an empty
// seat list or a seat number outside [1, capacity].  Not retryable
// without caller-side correction.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ReservationCoordinator owns the transactional contract between the
// seat ledger and the booking ledger: for every trip, the reserved
// seats in trip_seats equal the union of seats across that trip's
// non-Cancelled bookings, after every operation.
//
// Concurrency: each mutation locks the trip row (FOR UPDATE) so
// writers on the same trip serialise, and writes the ledger version
// conditionally so any lost-update race that slips through surfaces
// as ErrVersionConflict instead of silent corruption.
type ReservationCoordinator struct {
	db       *sql.DB
	trips    *repository.TripRepo
	bookings *repository.BookingRepo
	buses    *repository.BusRepo
}

// NewReservationCoordinator constructs the coordinator.  All
// dependencies must be non-nil.
func NewReservationCoordinator(db *sql.DB, trips *repository.TripRepo, bookings *repository.BookingRepo, buses *repository.BusRepo) *ReservationCoordinator {
	if db == nil || trips == nil || bookings == nil || buses == nil {
		panic("nil dependency passed to NewReservationCoordinator")
	}
	return &ReservationCoordinator{db: db, trips: trips, bookings: bookings, buses: buses}
}

// classify maps storage timeouts to the retryable ErrUnavailable and
// passes every other error through.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return repository.ErrUnavailable
	}
	return err
}

// Reserve allocates the requested seats on a trip and creates the
// matching booking as one atomic unit.  On any failure after the
// ledger mutation the transaction rolls back, so no seat is ever left
// reserved without a persisted booking and no booking ever exists
// whose seats are not reserved.
//
// Failure modes: repository.ErrTripNotFound, *ValidationError,
// *model.SeatConflictError (naming the full conflicting set),
// repository.ErrVersionConflict (retryable),
// repository.ErrUnavailable (retryable).
func (rc *ReservationCoordinator) Reserve(ctx context.Context, busID, tripID uint64, seatNumbers []uint32, userID uint64, payment *model.PaymentDetails) (*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	seats := model.DedupeSeatNumbers(seatNumbers)
	if len(seats) == 0 {
		return nil, &ValidationError{Msg: "at least one seat must be requested"}
	}

	tx, err := rc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	trip, err := rc.trips.GetForUpdateTx(ctx, tx, busID, tripID)
	if err != nil {
		return nil, classify(err)
	}
	bus, err := rc.busForTripTx(ctx, tx, trip.BusID)
	if err != nil {
		return nil, classify(err)
	}
	for _, n := range seats {
		if n < 1 || n > bus.SeatCapacity {
			return nil, &ValidationError{Msg: "seat number out of range for this bus"}
		}
	}

	rows, err := rc.trips.SeatsTx(ctx, tx, trip.ID)
	if err != nil {
		return nil, classify(err)
	}
	ledger := model.LedgerFromSeats(rows)
	now := time.Now().UTC()
	if err := ledger.Reserve(seats, userID, now); err != nil {
		return nil, err
	}
	if err := rc.trips.ReserveSeatsTx(ctx, tx, trip.ID, seats, userID, now); err != nil {
		return nil, classify(err)
	}
	if err := rc.trips.BumpVersionTx(ctx, tx, trip.ID, trip.Version); err != nil {
		return nil, classify(err)
	}

	status := model.PaymentPending
	if payment != nil {
		status = model.PaymentCompleted
	}
	booking := &model.Booking{
		BookingRef:    uuid.NewString(),
		TripID:        trip.ID,
		BusID:         trip.BusID,
		RouteID:       trip.RouteID,
		UserID:        userID,
		Seats:         seats,
		TotalSeats:    uint32(len(seats)),
		PaymentStatus: status,
		TripDate:      trip.TripDate,
		Payment:       payment,
	}
	if err := rc.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	committed = true
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return booking, nil
}

// Cancel releases a booking's seats back to the trip's ledger and
// marks the booking Cancelled.  Cancelled is terminal, so cancelling
// twice is a no-op success.  When the booking's trip no longer exists
// the seats have already gone with it; the integrity condition is
// logged and the booking is still marked Cancelled.
func (rc *ReservationCoordinator) Cancel(ctx context.Context, bookingID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := rc.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := rc.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return classify(err)
	}
	if booking.PaymentStatus == model.PaymentCancelled {
		return nil
	}

	trip, err := rc.trips.GetByIDForUpdateTx(ctx, tx, booking.TripID)
	switch {
	case err == nil:
		if err := rc.trips.ReleaseSeatsTx(ctx, tx, trip.ID, booking.Seats); err != nil {
			return classify(err)
		}
		if err := rc.trips.BumpVersionTx(ctx, tx, trip.ID, trip.Version); err != nil {
			return classify(err)
		}
	case errors.Is(err, repository.ErrTripNotFound):
		// Orphaned booking: the trip and its ledger are gone. Cancel anyway.
		log.Printf("cancel: booking %d references missing trip %d", booking.ID, booking.TripID)
	default:
		return classify(err)
	}

	if err := rc.bookings.UpdateStatusTx(ctx, tx, booking.ID, model.PaymentCancelled); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// CompletePayment records payment details on a Pending booking and
// moves it to Completed.  Cancelled and already-Completed bookings
// refuse the transition with repository.ErrConflict.
func (rc *ReservationCoordinator) CompletePayment(ctx context.Context, bookingID uint64, p model.PaymentDetails) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := rc.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := rc.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return classify(err)
	}
	if !model.CanTransitionTo(booking.PaymentStatus, model.PaymentCompleted) {
		return repository.ErrConflict
	}
	if err := rc.bookings.RecordPaymentTx(ctx, tx, booking.ID, p); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// SeatMap is the full seat detail of a trip at read time: number,
// reserved flag, holder and timestamp per slot.  No side effects.
type SeatMap struct {
	Trip           *model.TripSchedule
	Seats          []model.Seat
	AvailableCount int
}

// GetSeatMap returns the trip's current seat map.
func (rc *ReservationCoordinator) GetSeatMap(ctx context.Context, tripID uint64) (*SeatMap, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	trip, err := rc.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, classify(err)
	}
	seats, err := rc.trips.Seats(ctx, trip.ID)
	if err != nil {
		return nil, classify(err)
	}
	return &SeatMap{
		Trip:           trip,
		Seats:          seats,
		AvailableCount: model.LedgerFromSeats(seats).AvailableCount(),
	}, nil
}

// ReservedSeatView is one reserved seat joined with the payment
// status and holder of the booking covering it.  Seats with no live
// booking report "Unknown", which points at a ledger/booking drift
// worth investigating.
type ReservedSeatView struct {
	SeatNumber    uint32     `json:"seat_number"`
	ReservedBy    *uint64    `json:"reserved_by"`
	BookingDate   *time.Time `json:"booking_date"`
	PaymentStatus string     `json:"payment_status"`
	Username      string     `json:"username"`
}

// ReservedSeatsWithPayment returns the reserved seats of a trip for
// staff manifest views, cross-referenced against the booking ledger.
// The caller must be the driver or conductor of the trip's bus;
// anyone else gets repository.ErrForbidden.
func (rc *ReservationCoordinator) ReservedSeatsWithPayment(ctx context.Context, tripID, employeeID uint64) ([]ReservedSeatView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	trip, err := rc.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, classify(err)
	}
	bus, err := rc.buses.GetByID(ctx, trip.BusID)
	if err != nil {
		return nil, classify(err)
	}
	if bus.DriverID != employeeID && bus.ConductorID != employeeID {
		return nil, repository.ErrForbidden
	}

	seats, err := rc.trips.Seats(ctx, trip.ID)
	if err != nil {
		return nil, classify(err)
	}
	payments, err := rc.bookings.SeatPaymentsByTrip(ctx, trip.ID)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]ReservedSeatView, 0)
	for _, s := range seats {
		if !s.IsReserved {
			continue
		}
		view := ReservedSeatView{
			SeatNumber:    s.SeatNumber,
			ReservedBy:    s.ReservedBy,
			BookingDate:   s.BookingDate,
			PaymentStatus: "Unknown",
			Username:      "Unknown",
		}
		if sp, ok := payments[s.SeatNumber]; ok {
			view.PaymentStatus = sp.PaymentStatus
			view.Username = sp.Username
		} else {
			log.Printf("manifest: trip %d seat %d reserved with no live booking", trip.ID, s.SeatNumber)
		}
		out = append(out, view)
	}
	return out, nil
}

// AvailableTrips lists trips between two named points on a date with
// their remaining-seat counts.  An empty result is not an error.
func (rc *ReservationCoordinator) AvailableTrips(ctx context.Context, startPoint, destination string, date time.Time) ([]repository.TripSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out, err := rc.trips.SearchAvailable(ctx, startPoint, destination, date)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// busForTripTx loads the bus row inside the reservation transaction
// so capacity validation sees the same snapshot the ledger came from.
func (rc *ReservationCoordinator) busForTripTx(ctx context.Context, tx *sql.Tx, busID uint64) (*model.Bus, error) {
	var b model.Bus
	err := tx.QueryRowContext(ctx,
		"SELECT id, registration_number, model, seat_capacity, driver_id, conductor_id, owner, created_at, updated_at FROM buses WHERE id=?",
		busID).Scan(&b.ID, &b.RegistrationNumber, &b.Model, &b.SeatCapacity, &b.DriverID, &b.ConductorID, &b.Owner, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrBusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

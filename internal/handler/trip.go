package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/service"
)

// TripHandler exposes trip schedule management and the read paths over
// the seat ledger: seat maps, availability search and staff manifest
// views.  Seat state itself is only ever written by the reservation
// coordinator.
type TripHandler struct {
	Trips       *repository.TripRepo
	Buses       *repository.BusRepo
	Routes      *repository.RouteRepo
	Employees   *repository.EmployeeRepo
	Coordinator *service.ReservationCoordinator
}

func NewTripHandler(t *repository.TripRepo, b *repository.BusRepo, r *repository.RouteRepo, e *repository.EmployeeRepo, rc *service.ReservationCoordinator) *TripHandler {
	if t == nil || b == nil || r == nil || e == nil || rc == nil {
		panic("nil dependency passed to NewTripHandler")
	}
	return &TripHandler{Trips: t, Buses: b, Routes: r, Employees: e, Coordinator: rc}
}

type tripReq struct {
	BusID         uint64 `json:"bus_id"`
	RouteID       uint64 `json:"route_id"`
	TripDate      string `json:"trip_date"`      // YYYY-MM-DD
	DepartureTime string `json:"departure_time"` // RFC3339
	ArrivalTime   string `json:"arrival_time"`   // RFC3339
	IsReturnTrip  bool   `json:"is_return_trip"`
	PriceCents    uint32 `json:"price_cents"`
}

// Create handles POST /v1/trips.  The seat ledger is initialised in the
// same transaction as the trip row, one free slot per seat of the bus,
// numbered from 1.
func (h *TripHandler) Create(c echo.Context) error {
	var req tripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BusID == 0 || req.RouteID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_id and route_id are required"})
	}
	tripDate, ok := parseDateParam(req.TripDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_date must be YYYY-MM-DD"})
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_time must be RFC3339"})
	}
	arrival, err := time.Parse(time.RFC3339, req.ArrivalTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival_time must be RFC3339"})
	}
	if !arrival.After(departure) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival_time must be after departure_time"})
	}

	ctx := c.Request().Context()
	bus, err := h.Buses.GetByID(ctx, req.BusID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if _, err := h.Routes.GetByID(ctx, req.RouteID); err != nil {
		return writeDomainError(c, err)
	}
	price := req.PriceCents
	trip := &model.TripSchedule{
		BusID:         req.BusID,
		RouteID:       req.RouteID,
		TripDate:      tripDate,
		IsReturnTrip:  req.IsReturnTrip,
		DepartureTime: departure.UTC(),
		ArrivalTime:   arrival.UTC(),
		PriceCents:    price,
	}
	id, err := h.Trips.CreateWithLedger(ctx, trip, bus.SeatCapacity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create trip failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":          id,
		"total_seats": bus.SeatCapacity,
	})
}

// List handles GET /v1/trips.
func (h *TripHandler) List(c echo.Context) error {
	items, err := h.Trips.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/trips/:id.
func (h *TripHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	t, err := h.Trips.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": t})
}

// Update handles PUT /v1/buses/:busId/trips/:tripId.  Only timing and
// route fields may change; seat state belongs to the coordinator and
// capacity was frozen at creation.
func (h *TripHandler) Update(c echo.Context) error {
	busID, ok := pathID(c, "busId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	tripID, ok := pathID(c, "tripId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var req struct {
		RouteID       uint64  `json:"route_id"`
		TripDate      *string `json:"trip_date"`
		DepartureTime *string `json:"departure_time"`
		ArrivalTime   *string `json:"arrival_time"`
		IsReturnTrip  *bool   `json:"is_return_trip"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var tripDate, departure, arrival *time.Time
	if req.TripDate != nil {
		d, ok := parseDateParam(*req.TripDate)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_date must be YYYY-MM-DD"})
		}
		tripDate = &d
	}
	if req.DepartureTime != nil {
		t, err := time.Parse(time.RFC3339, *req.DepartureTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_time must be RFC3339"})
		}
		u := t.UTC()
		departure = &u
	}
	if req.ArrivalTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ArrivalTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival_time must be RFC3339"})
		}
		u := t.UTC()
		arrival = &u
	}
	if err := h.Trips.Update(c.Request().Context(), busID, tripID, req.RouteID, tripDate, departure, arrival, req.IsReturnTrip); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/buses/:busId/trips/:tripId.  Refused while
// non-cancelled bookings reference the trip.
func (h *TripHandler) Delete(c echo.Context) error {
	busID, ok := pathID(c, "busId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	tripID, ok := pathID(c, "tripId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	if err := h.Trips.Delete(c.Request().Context(), busID, tripID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip has active bookings"})
		}
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SeatMap handles GET /v1/trips/:id/seats.  Never cached: the response
// must reflect the current ledger state.
func (h *TripHandler) SeatMap(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	sm, err := h.Coordinator.GetSeatMap(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	seats := make([]echo.Map, 0, len(sm.Seats))
	for _, s := range sm.Seats {
		seats = append(seats, echo.Map{
			"seat_number":  s.SeatNumber,
			"is_reserved":  s.IsReserved,
			"reserved_by":  s.ReservedBy,
			"booking_date": s.BookingDate,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id":         sm.Trip.ID,
		"total_seats":     len(sm.Seats),
		"available_seats": sm.AvailableCount,
		"seats":           seats,
	})
}

// Search handles GET /v1/trips/search?from=&to=&date=.  Empty result
// is a 200 with an empty items array.
func (h *TripHandler) Search(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	if from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from and to are required"})
	}
	date, ok := parseDateParam(c.QueryParam("date"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	items, err := h.Coordinator.AvailableTrips(c.Request().Context(), from, to, date)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DayManifest handles GET /v1/trips/day?employee_id=&date=.  It returns
// the trips of the bus the employee drives or conducts on the given
// date, so staff can see their working day.
func (h *TripHandler) DayManifest(c echo.Context) error {
	employeeID, err := strconv.ParseUint(c.QueryParam("employee_id"), 10, 64)
	if err != nil || employeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee_id"})
	}
	date, ok := parseDateParam(c.QueryParam("date"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()
	if _, err := h.Employees.GetByID(ctx, employeeID); err != nil {
		return writeDomainError(c, err)
	}
	bus, err := h.Buses.GetByEmployee(ctx, employeeID)
	if err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee is not assigned to a bus"})
		}
		return writeDomainError(c, err)
	}
	items, err := h.Trips.ListByBusAndDate(ctx, bus.ID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bus_id": bus.ID,
		"items":  items,
	})
}

// ReservedSeats handles GET /v1/trips/reserved-seats?trip_id=&employee_id=.
// Staff manifest view: reserved seats with per-seat payment status.
// Only the driver or conductor of the trip's bus may read it.
func (h *TripHandler) ReservedSeats(c echo.Context) error {
	tripID, err := strconv.ParseUint(c.QueryParam("trip_id"), 10, 64)
	if err != nil || tripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip_id"})
	}
	employeeID, err := strconv.ParseUint(c.QueryParam("employee_id"), 10, 64)
	if err != nil || employeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee_id"})
	}
	seats, err := h.Coordinator.ReservedSeatsWithPayment(c.Request().Context(), tripID, employeeID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id": tripID,
		"items":   seats,
	})
}

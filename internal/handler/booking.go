package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/service"
)

// BookingHandler exposes the reservation flow to customers: reserving
// seats, cancelling, recording payments and listing bookings.  All
// ledger semantics live in the coordinator; this layer binds requests,
// enforces ownership and maps errors to HTTP statuses.
type BookingHandler struct {
	Coordinator *service.ReservationCoordinator
	Bookings    *repository.BookingRepo
	Trips       *repository.TripRepo
	Routes      *repository.RouteRepo
}

func NewBookingHandler(rc *service.ReservationCoordinator, b *repository.BookingRepo, t *repository.TripRepo, r *repository.RouteRepo) *BookingHandler {
	if rc == nil || b == nil || t == nil || r == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Coordinator: rc, Bookings: b, Trips: t, Routes: r}
}

type paymentReq struct {
	AmountCents   uint32 `json:"amount_cents"`
	TransactionID string `json:"transaction_id"`
	PaymentMethod string `json:"payment_method"`
}

type reserveReq struct {
	BusID   uint64      `json:"bus_id"`
	TripID  uint64      `json:"trip_id"`
	Seats   []uint32    `json:"seats"`
	Payment *paymentReq `json:"payment"`
}

// isAdmin reports whether the authenticated request carries the ADMIN
// role claim.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}

// Reserve handles POST /v1/bookings.  Seats are reserved and the
// booking row created in one transaction; a seat conflict returns 409
// with every contested seat number so the client can re-pick once.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BusID == 0 || req.TripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_id and trip_id are required"})
	}
	if len(req.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	var payment *model.PaymentDetails
	if req.Payment != nil {
		payment = &model.PaymentDetails{
			AmountCents:   req.Payment.AmountCents,
			TransactionID: req.Payment.TransactionID,
			PaymentMethod: req.Payment.PaymentMethod,
		}
	}

	booking, err := h.Coordinator.Reserve(c.Request().Context(), req.BusID, req.TripID, req.Seats, userID, payment)
	if err != nil {
		return writeDomainError(c, err)
	}

	h.publishConfirmed(booking)

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":     booking.ID,
		"booking_ref":    booking.BookingRef,
		"trip_id":        booking.TripID,
		"seats":          booking.Seats,
		"total_seats":    booking.TotalSeats,
		"payment_status": booking.PaymentStatus,
	})
}

// Cancel handles PATCH /v1/bookings/:id/cancel.  Cancelling an already
// cancelled booking succeeds without effect.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	booking, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if booking.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Coordinator.Cancel(ctx, id); err != nil {
		return writeDomainError(c, err)
	}

	// Best-effort event; ledger state is already committed.
	go func(b *model.Booking) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishBookingCancelled(ctx, queue.BookingCancelledEvent{
			BookingID:   b.ID,
			BookingRef:  b.BookingRef,
			UserID:      b.UserID,
			TripID:      b.TripID,
			SeatNumbers: b.Seats,
			CancelledAt: time.Now().UTC().Format(time.RFC3339),
		})
	}(booking)

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     booking.ID,
		"payment_status": model.PaymentCancelled,
		"released_seats": booking.Seats,
	})
}

// CompletePayment handles PATCH /v1/bookings/:id/payment.
func (h *BookingHandler) CompletePayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountCents == 0 || req.TransactionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents and transaction_id are required"})
	}
	ctx := c.Request().Context()
	booking, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if booking.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Coordinator.CompletePayment(ctx, id, model.PaymentDetails{
		AmountCents:   req.AmountCents,
		TransactionID: req.TransactionID,
		PaymentMethod: req.PaymentMethod,
	}); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not awaiting payment"})
		}
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     id,
		"payment_status": model.PaymentCompleted,
	})
}

// Get handles GET /v1/bookings/:id.  Owners see their own bookings;
// admins see everything.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if booking.UserID != userID && !isAdmin(c) {
		// Hide existence of other users' bookings.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": bookingView(booking)})
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(bookings))
	for i := range bookings {
		items = append(items, bookingView(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListAll handles GET /v1/bookings (admin only by routing).
func (h *BookingHandler) ListAll(c echo.Context) error {
	bookings, err := h.Bookings.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(bookings))
	for i := range bookings {
		items = append(items, bookingView(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func bookingView(b *model.Booking) echo.Map {
	view := echo.Map{
		"booking_id":     b.ID,
		"booking_ref":    b.BookingRef,
		"trip_id":        b.TripID,
		"bus_id":         b.BusID,
		"route_id":       b.RouteID,
		"user_id":        b.UserID,
		"seats":          b.Seats,
		"total_seats":    b.TotalSeats,
		"payment_status": b.PaymentStatus,
		"trip_date":      b.TripDate,
		"created_at":     b.CreatedAt,
	}
	if b.Payment != nil {
		view["payment"] = echo.Map{
			"amount_cents":   b.Payment.AmountCents,
			"transaction_id": b.Payment.TransactionID,
			"payment_method": b.Payment.PaymentMethod,
		}
	}
	return view
}

// publishConfirmed emits the booking.confirmed event in the background,
// enriched with trip and route details when they load.  Failures are
// logged by the queue package and never affect the committed booking.
func (h *BookingHandler) publishConfirmed(b *model.Booking) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.BookingConfirmedEvent{
			BookingID:     b.ID,
			BookingRef:    b.BookingRef,
			UserID:        b.UserID,
			TripID:        b.TripID,
			BusID:         b.BusID,
			RouteID:       b.RouteID,
			TripDate:      b.TripDate.Format("2006-01-02"),
			SeatNumbers:   b.Seats,
			PaymentStatus: b.PaymentStatus,
			ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if b.Payment != nil {
			ev.TotalAmountCents = b.Payment.AmountCents
		}
		if trip, err := h.Trips.GetByID(ctx, b.TripID); err == nil {
			ev.DepartureTime = trip.DepartureTime.Format(time.RFC3339)
		}
		if rt, err := h.Routes.GetByID(ctx, b.RouteID); err == nil {
			ev.StartPoint = rt.StartPoint
			ev.Destination = rt.EndPoint
		}
		_ = queue.PublishBookingConfirmed(ctx, ev)
	}()
}

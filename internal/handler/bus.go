package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// BusHandler exposes admin CRUD for the fleet.
type BusHandler struct {
	Buses *repository.BusRepo
}

func NewBusHandler(b *repository.BusRepo) *BusHandler {
	if b == nil {
		panic("nil repository passed to NewBusHandler")
	}
	return &BusHandler{Buses: b}
}

type busReq struct {
	RegistrationNumber string `json:"registration_number"`
	Model              string `json:"model"`
	SeatCapacity       uint32 `json:"seat_capacity"`
	DriverID           uint64 `json:"driver_id"`
	ConductorID        uint64 `json:"conductor_id"`
	Owner              string `json:"owner"`
}

// Create handles POST /v1/buses.  Capacity must be positive: it fixes
// the seat ledger size of every trip this bus will run.
func (h *BusHandler) Create(c echo.Context) error {
	var req busReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	if req.RegistrationNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration_number is required"})
	}
	if req.SeatCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_capacity must be positive"})
	}
	if req.DriverID == 0 || req.ConductorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "driver_id and conductor_id are required"})
	}
	id, err := h.Buses.Create(c.Request().Context(), &model.Bus{
		RegistrationNumber: req.RegistrationNumber,
		Model:              req.Model,
		SeatCapacity:       req.SeatCapacity,
		DriverID:           req.DriverID,
		ConductorID:        req.ConductorID,
		Owner:              req.Owner,
	})
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "registration number already exists"})
		}
		if err == repository.ErrEmployeeNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "driver or conductor does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// List handles GET /v1/buses.
func (h *BusHandler) List(c echo.Context) error {
	items, err := h.Buses.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/buses/:id.
func (h *BusHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	b, err := h.Buses.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Update handles PUT /v1/buses/:id.  Seat capacity is immutable after
// creation; existing ledgers were sized from it.
func (h *BusHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req busReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SeatCapacity != 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_capacity cannot be changed"})
	}
	if err := h.Buses.Update(c.Request().Context(), id, req.Model, req.Owner, req.DriverID, req.ConductorID); err != nil {
		if err == repository.ErrEmployeeNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "driver or conductor does not exist"})
		}
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/buses/:id.  Refused while any trip of the
// bus has non-cancelled bookings; cancel those bookings first so their
// seats flow back through the release path.
func (h *BusHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	if err := h.Buses.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "bus has trips with active bookings"})
		}
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// RouteHandler exposes admin CRUD for routes plus the public route
// browse endpoint.  The browse listing sits behind the response cache;
// route data changes rarely and never carries seat state.
type RouteHandler struct {
	Routes *repository.RouteRepo
}

func NewRouteHandler(r *repository.RouteRepo) *RouteHandler {
	if r == nil {
		panic("nil repository passed to NewRouteHandler")
	}
	return &RouteHandler{Routes: r}
}

type routeStopReq struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routeReq struct {
	Name       string         `json:"name"`
	StartPoint string         `json:"start_point"`
	StartLat   float64        `json:"start_lat"`
	StartLng   float64        `json:"start_lng"`
	EndPoint   string         `json:"end_point"`
	EndLat     float64        `json:"end_lat"`
	EndLng     float64        `json:"end_lng"`
	PriceCents uint32         `json:"price_cents"`
	Stops      []routeStopReq `json:"stops"`
}

// Create handles POST /v1/routes.
func (h *RouteHandler) Create(c echo.Context) error {
	var req routeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.StartPoint = strings.TrimSpace(req.StartPoint)
	req.EndPoint = strings.TrimSpace(req.EndPoint)
	if req.StartPoint == "" || req.EndPoint == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_point and end_point are required"})
	}
	rt := &model.Route{
		Name:       strings.TrimSpace(req.Name),
		StartPoint: req.StartPoint,
		StartLat:   req.StartLat,
		StartLng:   req.StartLng,
		EndPoint:   req.EndPoint,
		EndLat:     req.EndLat,
		EndLng:     req.EndLng,
		PriceCents: req.PriceCents,
	}
	for _, s := range req.Stops {
		rt.Stops = append(rt.Stops, model.RouteStop{Name: s.Name, Latitude: s.Latitude, Longitude: s.Longitude})
	}
	id, err := h.Routes.Create(c.Request().Context(), rt)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "route between these points already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create route failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// List handles GET /v1/routes.
func (h *RouteHandler) List(c echo.Context) error {
	items, err := h.Routes.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/routes/:id.
func (h *RouteHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	rt, err := h.Routes.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": rt})
}

// Update handles PUT /v1/routes/:id.  Endpoints are immutable; create a
// new route instead of repointing an existing one.
func (h *RouteHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	var req routeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Routes.Update(c.Request().Context(), id, req.Name, req.PriceCents); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/routes/:id.  A route still served by trip
// schedules cannot be removed.
func (h *RouteHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	if err := h.Routes.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "route has scheduled trips"})
		}
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWTAuth stores the claim value untyped, so every numeric form the JWT
// library may produce is accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.  Zero and malformed
// values are both rejected.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseDateParam parses a YYYY-MM-DD query parameter.
func parseDateParam(raw string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// writeDomainError maps coordinator and repository errors onto the HTTP
// status taxonomy shared by every handler: missing rows are 404, seat
// and state conflicts are 409, validation problems are 400, storage
// timeouts are 503, everything else is 500.  Seat conflicts carry the
// full set of contested seat numbers so clients can re-pick in one
// round trip; version conflicts are flagged retryable.
func writeDomainError(c echo.Context, err error) error {
	var conflict *model.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":             "seats already reserved",
			"conflicting_seats": conflict.Seats,
		})
	}
	var invalid *service.ValidationError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": invalid.Msg})
	}
	switch {
	case errors.Is(err, repository.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case errors.Is(err, repository.ErrRouteNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
	case errors.Is(err, repository.ErrTripNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrEmployeeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, retry", "retryable": true})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, retry", "retryable": true})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

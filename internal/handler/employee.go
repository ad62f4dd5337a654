package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// EmployeeHandler exposes admin CRUD for drivers and conductors.
type EmployeeHandler struct {
	Employees *repository.EmployeeRepo
}

func NewEmployeeHandler(e *repository.EmployeeRepo) *EmployeeHandler {
	if e == nil {
		panic("nil repository passed to NewEmployeeHandler")
	}
	return &EmployeeHandler{Employees: e}
}

type employeeReq struct {
	EmployeeCode string `json:"employee_code"`
	Name         string `json:"name"`
	Position     string `json:"position"` // Driver | Conductor
	Mobile       string `json:"mobile"`
}

// Create handles POST /v1/employees.
func (h *EmployeeHandler) Create(c echo.Context) error {
	var req employeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.EmployeeCode = strings.TrimSpace(req.EmployeeCode)
	req.Name = strings.TrimSpace(req.Name)
	if req.EmployeeCode == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee_code and name are required"})
	}
	if req.Position != model.PositionDriver && req.Position != model.PositionConductor {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "position must be Driver or Conductor"})
	}
	id, err := h.Employees.Create(c.Request().Context(), &model.Employee{
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		Position:     req.Position,
		Mobile:       req.Mobile,
	})
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "employee code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create employee failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// List handles GET /v1/employees.
func (h *EmployeeHandler) List(c echo.Context) error {
	items, err := h.Employees.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/employees/:id.
func (h *EmployeeHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	e, err := h.Employees.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": e})
}

// Update handles PUT /v1/employees/:id.
func (h *EmployeeHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	var req employeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Position != "" && req.Position != model.PositionDriver && req.Position != model.PositionConductor {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "position must be Driver or Conductor"})
	}
	if err := h.Employees.Update(c.Request().Context(), id, req.Name, req.Position, req.Mobile); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/employees/:id.  An employee still assigned
// to a bus cannot be removed.
func (h *EmployeeHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee id"})
	}
	if err := h.Employees.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "employee is assigned to a bus"})
		}
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

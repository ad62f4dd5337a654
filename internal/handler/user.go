package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// UserHandler exposes admin account management: listing, profile
// updates and deletion.  Registration lives on AuthHandler.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo) *UserHandler {
	if u == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: u}
}

// List handles GET /v1/users.  Password hashes never leave the server.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]userPart, 0, len(users))
	for _, u := range users {
		items = append(items, userPart{ID: u.ID, FirstName: u.FirstName, Username: u.Username, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item": userPart{ID: u.ID, FirstName: u.FirstName, Username: u.Username, Email: u.Email, Role: u.Role},
	})
}

// Update handles PUT /v1/users/:id.  Only profile fields are mutable;
// role changes are out of scope and usernames are permanent.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var body struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Users.Update(c.Request().Context(), id, body.FirstName, body.Email); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// Delete handles DELETE /v1/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

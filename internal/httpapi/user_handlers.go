package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"worshipScheduling/internal/auth"
	"worshipScheduling/models"
	"worshipScheduling/repository"
)

// caller resolves the authenticated user from the database so that role decisions use
// the stored role rather than the token claim.
func (h *handler) caller(c echo.Context) (*models.User, error) {
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return nil, err
	}
	u, err := h.users.GetByID(c.Request().Context(), p.UserID)
	if err != nil {
		return nil, internalError("failed to load user", err)
	}
	if u == nil {
		return nil, unauthorized("authentication failed")
	}
	return u, nil
}

func (h *handler) listUsers(c echo.Context) error {
	role := strings.ToLower(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && role != repository.RoleAll && !models.Role(role).Valid() {
		return badRequest("role must be admin, musician or all")
	}
	users, err := h.users.List(c.Request().Context(), role)
	if err != nil {
		return internalError("failed to list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *handler) createUser(c echo.Context) error {
	var req userRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	name, username := strings.TrimSpace(req.Name), strings.TrimSpace(req.Username)
	email := optional(req.Email)
	if name == "" || username == "" || email == nil || req.Password == "" {
		return badRequest("name, username, email and password are required")
	}
	role := models.RoleMusician
	if req.Role != "" {
		r, ok := parseRole(req.Role)
		if !ok {
			return badRequest("role must be admin or musician")
		}
		role = r
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	u, err := h.users.Create(c.Request().Context(), &models.User{
		Name:     name,
		Username: username,
		Email:    email,
		Password: hash,
		Role:     role,
	}, req.Instruments)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict("username or email already in use")
		}
		return internalError("failed to create user", err)
	}
	return c.JSON(http.StatusCreated, u)
}

// updateUser lets musicians edit themselves and admins edit anyone. Only admins may change roles.
func (h *handler) updateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	me, err := h.caller(c)
	if err != nil {
		return err
	}
	if !me.IsAdmin() && me.ID != id {
		return forbidden("you can only update your own profile")
	}
	var req userRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	name, username := strings.TrimSpace(req.Name), strings.TrimSpace(req.Username)
	email := optional(req.Email)
	if name == "" || username == "" || email == nil {
		return badRequest("name, username and email are required")
	}
	upd := repository.UserUpdate{Name: name, Username: username, Email: email, Instruments: req.Instruments}
	if req.Role != "" {
		role, ok := parseRole(req.Role)
		if !ok {
			return badRequest("role must be admin or musician")
		}
		if !me.IsAdmin() && role != me.Role {
			return forbidden("only admins can change roles")
		}
		upd.Role = &role
	}
	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return err
		}
		upd.PasswordHash = &hash
	}
	u, err := h.users.Update(c.Request().Context(), id, upd)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("user not found")
	case errors.Is(err, repository.ErrConflict):
		return conflict("username or email already in use")
	case err != nil:
		return internalError("failed to update user", err)
	case u == nil:
		return notFound("user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *handler) deleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	if p.UserID == id {
		return forbidden("you cannot delete your own account")
	}
	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return internalError("failed to delete user", err)
	}
	h.logger.Info("user deleted", "user_id", id, "by", p.UserID)
	return c.NoContent(http.StatusNoContent)
}

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"worshipScheduling/internal/auth"
	"worshipScheduling/models"
	"worshipScheduling/repository"
)

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type userSummary struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Email    *string     `json:"email"`
	Role     models.Role `json:"role"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

// register creates a musician account.
func (h *handler) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	name, username := strings.TrimSpace(req.Name), strings.TrimSpace(req.Username)
	if name == "" || username == "" || req.Password == "" {
		return badRequest("name, username and password are required")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	u, err := h.users.Create(c.Request().Context(), &models.User{
		Name:     name,
		Username: username,
		Email:    optional(req.Email),
		Password: hash,
		Role:     models.RoleMusician,
	}, nil)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict("username or email already in use")
		}
		return internalError("failed to register user", err)
	}
	h.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return c.JSON(http.StatusCreated, registerResponse{Message: "user registered", UserID: u.ID})
}

// login verifies credentials and issues a token. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (h *handler) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return badRequest("username and password are required")
	}
	u, err := h.users.GetByUsername(c.Request().Context(), username)
	if err != nil {
		return internalError("failed to login", err)
	}
	var hash string
	if u != nil {
		hash = u.Password
	}
	if !auth.CheckPassword(hash, req.Password) || u == nil {
		return unauthorized("invalid credentials")
	}
	token, _, err := h.issuer.Issue(u)
	if err != nil {
		return internalError("failed to login", err)
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token: token,
		User:  userSummary{ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email, Role: u.Role},
	})
}

func hashPassword(pw string) (string, error) {
	hash, err := auth.HashPassword(pw)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", badRequest("password is too long")
	}
	if err != nil {
		return "", internalError("failed to hash password", err)
	}
	return hash, nil
}

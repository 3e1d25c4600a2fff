package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// authResponse is the body returned by register, login and profile update.
type authResponse struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

func (h *Handler) authResponse(user *models.User) (*authResponse, error) {
	token, err := utils.GenerateJWT(user.ID.Hex(), h.opts.JWTSecret)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		ID:      user.ID.Hex(),
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Token:   token,
	}, nil
}

// Helper function to validate email format
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) RegisterUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	if !isValidEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email format")
	}
	if len(req.Password) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters")
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user := &models.User{Name: req.Name, Email: req.Email, Password: hashed}
	if err := h.users.CreateUser(ctx, user); err != nil {
		return err
	}

	resp, err := h.authResponse(user)
	if err != nil {
		return err
	}

	h.log.Info("User registered", zap.String("user_id", user.ID.Hex()))
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) LoginUser(c echo.Context) error {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&loginRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	invalid := echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")

	user, err := h.users.FindByEmail(ctx, loginRequest.Email)
	if errors.Is(err, database.ErrUserNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginRequest.Password)); err != nil {
		return invalid
	}

	resp, err := h.authResponse(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetUserProfile returns the caller's account.
func (h *Handler) GetUserProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type profileUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserProfile changes the caller's name, email and optionally password,
// and returns a fresh token.
func (h *Handler) UpdateUserProfile(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}

	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	user := *current
	user.Password = ""
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		if !isValidEmail(email) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid email format")
		}
		user.Email = email
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters")
		}
		if user.Password, err = hashPassword(req.Password); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.users.UpdateUser(ctx, &user); err != nil {
		return err
	}

	resp, err := h.authResponse(&user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUserByID(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrUserNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type adminUserUpdateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin *bool  `json:"isAdmin"`
}

// UpdateUser lets an admin rename a user, change their email or toggle admin.
func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrUserNotFound)
	if err != nil {
		return err
	}

	var req adminUserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.Password = ""

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		if !isValidEmail(email) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid email format")
		}
		user.Email = email
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := h.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	h.log.Info("User updated by admin", zap.String("user_id", id.Hex()), zap.Bool("is_admin", user.IsAdmin))
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrUserNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return echo.NewHTTPError(http.StatusBadRequest, "Can not delete admin user")
	}

	if err := h.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	h.log.Info("User deleted", zap.String("user_id", id.Hex()))
	return c.JSON(http.StatusOK, map[string]string{"message": "User removed"})
}

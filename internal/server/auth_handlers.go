package server

import (
	"strings"

	"forum/internal/featureflags"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.Registration, 0) {
		return respond(c, models.NewForbiddenError("Registration is currently closed"))
	}

	var in service.RegisterInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	user, err := s.userService.Register(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	token, err := s.auth.Issue(user.ID, user.Username)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user})
}

// LoginRequest accepts either a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Exchange credentials for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	login := req.Username
	if strings.TrimSpace(login) == "" {
		login = req.Email
	}
	if strings.TrimSpace(login) == "" || req.Password == "" {
		return respond(c, models.NewValidationError("Username and password are required"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), login, req.Password)
	if err != nil {
		return respond(c, err)
	}
	token, err := s.auth.Issue(user.ID, user.Username)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}
	return c.JSON(AuthResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current access token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.TokenClaims(c); claims != nil {
		if err := s.auth.Revoke(c.UserContext(), claims); err != nil {
			return respond(c, models.NewInternalError(err))
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

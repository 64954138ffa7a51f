package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/config"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/dto"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

// SessionCookie carries the JWT between client and server.
const SessionCookie = "token"

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if msg := req.Validate(); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}

	user, token, err := h.authService.Signup(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return fail(c, fiber.StatusConflict, "Email already in use")
		}
		return serviceError(c, err)
	}

	h.setSession(c, token)
	return c.Status(fiber.StatusCreated).JSON(user.ToDomain())
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if msg := req.Validate(); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}

	user, token, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		return serviceError(c, err)
	}

	h.setSession(c, token)
	return c.JSON(user.ToDomain())
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	user, err := h.authService.Me(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(user.ToDomain())
}

func (h *AuthHandler) CompleteOnboarding(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	user, err := h.authService.CompleteOnboarding(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(user.ToDomain())
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.JWTExpiry / time.Second),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

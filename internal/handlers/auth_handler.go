package handlers

import (
	"errors"

	"ecofinds/internal/handlers/response"
	"ecofinds/internal/middleware"
	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for authentication and profiles.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication and profile routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", auth, h.HandleLogout)

	router.Get("/me", auth, h.HandleGetProfile)
	router.Patch("/me", auth, h.HandleUpdateProfile)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid request body", err.Error()))
	}

	user, err := h.authService.Register(c.UserContext(), in)
	if err != nil {
		return response.Fail(c, "Registration failed", err)
	}
	token, err := h.authService.IssueToken(user)
	if err != nil {
		return response.Fail(c, "Could not issue token", err)
	}

	logrus.WithField("user_id", user.ID).Info("User registered")
	return c.Status(fiber.StatusCreated).JSON(response.Success("User registered successfully", fiber.Map{
		"user":  user,
		"token": token,
	}, nil))
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid request body", err.Error()))
	}

	user, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Info("Failed login attempt")
		}
		return response.Fail(c, "Authentication failed", err)
	}

	return c.JSON(response.Success("Login successful", fiber.Map{
		"user":  user,
		"token": token,
	}, nil))
}

// HandleLogout acknowledges a sign-out. Tokens are stateless, so the client
// discards its own copy.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	logrus.WithField("user_id", middleware.UserID(c)).Info("User signed out")
	return c.JSON(response.Success("Logged out", nil, nil))
}

// HandleGetProfile returns the signed-in user's profile.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return response.Fail(c, "Could not load profile", err)
	}
	return c.JSON(response.Success("Profile retrieved", user, nil))
}

// HandleUpdateProfile applies a JSON or multipart profile edit. A multipart
// request may carry a new avatar under "avatar".
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var upd services.ProfileUpdate
	var avatar *services.Upload

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid form", err.Error()))
		}
		upd.Username = formValue(form, "username")
		upd.Email = formValue(form, "email")
		upd.Bio = formValue(form, "bio")
		upd.Address = formValue(form, "address")
		if g := formValue(form, "gender"); g != nil {
			gender := models.Gender(*g)
			upd.Gender = &gender
		}
		uploads, err := formUploads(form, "avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid avatar", err.Error()))
		}
		if len(uploads) > 0 {
			avatar = &uploads[0]
		}
	} else if err := c.BodyParser(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid request body", err.Error()))
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.UserID(c), upd, avatar)
	if err != nil {
		if user != nil && errors.Is(err, services.ErrUploadFailed) {
			// The other fields were saved.
			return c.JSON(response.Success("Profile updated without new avatar", user, fiber.Map{
				"warning": err.Error(),
			}))
		}
		return response.Fail(c, "Could not update profile", err)
	}
	return c.JSON(response.Success("Profile updated", user, nil))
}

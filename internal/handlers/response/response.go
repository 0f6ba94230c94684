// Package response holds the JSON envelope every API handler answers with.
package response

import (
	"errors"
	"time"

	"ecofinds/internal/repositories"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Success creates a standardized success response
func Success(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now(),
	}
}

// Error creates a standardized error response
func Error(message string, err interface{}) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// Status maps a service error onto an HTTP status code.
func Status(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrNotSignedIn):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repositories.ErrConstraintViolation):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrUploadFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Fail writes err with the status it maps to. Validation failures carry
// their per-field messages; internal errors are logged and not echoed.
func Fail(c *fiber.Ctx, message string, err error) error {
	status := Status(err)
	var detail interface{} = err.Error()

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		detail = verr.Fields
	}
	if status == fiber.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"request_id": c.Locals("requestid"),
			"method":     c.Method(),
			"path":       c.Path(),
		}).WithError(err).Error(message)
		detail = "internal error"
	}
	return c.Status(status).JSON(Error(message, detail))
}

// ErrorHandler is the fiber.Config ErrorHandler for errors a handler returns
// instead of writing.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Fail(c, "Request failed", err)
}

package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUploadFailed is returned when the blob store rejects an image.
	ErrUploadFailed = errors.New("upload failed")
	// ErrForbidden is returned when a user touches a record they do not own.
	ErrForbidden = errors.New("not the owner")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotSignedIn is returned when an operation needs a current user.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrEmailTaken is a constraint violation on the unique email.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", repositories.ErrConstraintViolation)
)

// ValidationError reports input rejected before any storage call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsNotFound reports whether err means a referenced record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.IsCategory(fl.Field().String())
	})
	return v
}

// validateStruct runs struct tags and converts failures into a *ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &ValidationError{Fields: fields}
}

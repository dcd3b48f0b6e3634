package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// APIError is a rejection that already carries its client-facing code. The
// global error handler writes it verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// StatusOf returns the HTTP status err will be reported with.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"filemaster/internal/http/middleware"
	"filemaster/internal/service"
	"filemaster/internal/transform"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response. message must be safe
// to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *middleware.APIError
		if errors.As(err, &apiErr) {
			return writeError(c, apiErr.Status, apiErr.Code, apiErr.Message)
		}

		status := middleware.StatusOf(err)
		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "unauthorized")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "upload exceeds the size limit")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "rate limit exceeded")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}

var validationCodes = map[error]string{
	transform.ErrInvalidTool:       "INVALID_TOOL",
	transform.ErrCardinality:       "CARDINALITY_ERROR",
	transform.ErrTypeMismatch:      "TYPE_MISMATCH",
	transform.ErrMissingParameter:  "MISSING_PARAMETER",
	transform.ErrUnsupportedFormat: "UNSUPPORTED_FORMAT",
	transform.ErrOrderMismatch:     "INVALID_ORDER",
}

// mapServiceError translates service errors into responses. Processing
// failures get a generic message; their detail is already logged by the
// dispatcher.
func mapServiceError(c *fiber.Ctx, err error) error {
	var ve *transform.ValidationError
	switch {
	case errors.As(err, &ve):
		code, ok := validationCodes[ve.Kind]
		if !ok {
			code = "BAD_REQUEST"
		}
		return writeError(c, fiber.StatusBadRequest, code, ve.Message)
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrUserRequired):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.Is(err, service.ErrProcessingFailure):
		return writeError(c, fiber.StatusInternalServerError, "PROCESSING_FAILED", "file processing failed")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

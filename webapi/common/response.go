// Package common holds the shared response envelope and request binding
// helpers for the web API.
package common

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/gateway"
	"github.com/andinafx/cambio/pkg/session"
)

// Response is the standard success envelope.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes the success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ProblemJSON writes an RFC 9457 problem response.
func ProblemJSON(c *fiber.Ctx, status int, title string, detail any) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Instance: c.OriginalURL(),
	}
	switch d := detail.(type) {
	case nil:
	case string:
		pd.Detail = d
	case error:
		pd.Detail = d.Error()
	default:
		pd.Errors = d
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps service errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, domain.ErrWindowNotOpen),
		errors.Is(err, session.ErrNotClosed),
		errors.Is(err, session.ErrNotOpen),
		errors.Is(err, session.ErrNotPaused),
		errors.Is(err, session.ErrNotActive):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidConversion),
		errors.Is(err, domain.ErrUnknownOperationKind):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		// Platform validation failures pass through; platform outages
		// surface as a bad gateway.
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

var validate = validator.New()

// BindAndValidate parses the request body into T and validates it. On
// failure the problem response is already written; the handler should stop
// without writing anything else.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		_ = ProblemJSON(c, fiber.StatusBadRequest, "Invalid request body", err)
		return nil, err
	}
	if err := validate.Struct(&input); err != nil {
		_ = ProblemJSON(c, fiber.StatusBadRequest, "Validation failed", err)
		return nil, err
	}
	return &input, nil
}

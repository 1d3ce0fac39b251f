package response

import (
	"errors"

	"sunvolt-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// FromError maps domain sentinels to HTTP statuses and sends the standard
// error format. Unknown errors become 500 without leaking internals.
func FromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrBelowMinimum),
		errors.Is(err, domain.ErrInvalidConfiguration),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuoteNotEligible):
		return Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, domain.ErrWalletSuspended):
		return Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyFinalized):
		return Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

package response

import (
	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/logger"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
)

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Success(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *fiber.Ctx, data interface{}, message string) error {
	return c.Status(fiber.StatusCreated).JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *fiber.Ctx, statusCode int, errorCode string, message string, details interface{}) error {
	return c.Status(statusCode).JSON(StandardResponse{
		Success: false,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
	})
}

func BadRequest(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeInvalidRequest, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthenticated, message, nil)
}

func ValidationError(c *fiber.Ctx, errors interface{}) error {
	return Error(c, fiber.StatusUnprocessableEntity, CodeValidation, "Validation failed", errors)
}

func InternalError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeInternal, message, nil)
}

// FromError writes err using its apperror kind. Internal causes are logged
// and replaced by a generic message.
func FromError(c *fiber.Ctx, err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindInvalidRequest:
		return BadRequest(c, apperror.MessageOf(err), nil)
	case apperror.KindUnauthenticated:
		return Unauthorized(c, apperror.MessageOf(err))
	default:
		logger.Log.Errorw("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"err", err,
		)
		return InternalError(c, apperror.MessageOf(err))
	}
}

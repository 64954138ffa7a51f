package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/dto"
)

// ErrorHandler renders errors that escaped the handlers. Details of 5xx
// errors are logged, never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error",
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"action", c.Method()+" "+c.Path(),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}

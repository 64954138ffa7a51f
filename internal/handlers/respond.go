package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/dto"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: message})
}

// serviceError maps service errors onto status codes. Anything unknown is
// logged and reported as a 500 without details.
func serviceError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, fiber.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrInvalidReference):
		return fail(c, fiber.StatusBadRequest, "Unknown collection or label")
	case errors.Is(err, services.ErrTaskNotFound):
		return fail(c, fiber.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrCollectionNotFound):
		return fail(c, fiber.StatusNotFound, "Collection not found")
	case errors.Is(err, services.ErrLabelNotFound):
		return fail(c, fiber.StatusNotFound, "Label not found")
	case errors.Is(err, services.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	slog.Error("request failed",
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"action", c.Method()+" "+c.Route().Path,
		"error", err.Error(),
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

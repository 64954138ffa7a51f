package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

type LabelHandler struct {
	labelService *services.LabelService
}

func NewLabelHandler(labelService *services.LabelService) *LabelHandler {
	return &LabelHandler{labelService: labelService}
}

func (h *LabelHandler) List(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	labels, err := h.labelService.List(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(models.LabelsToDomain(labels))
}

func (h *LabelHandler) Get(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	label, err := h.labelService.Get(userID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(label.ToDomain())
}

func (h *LabelHandler) Create(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var in domain.LabelInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	label, err := h.labelService.Create(userID, in)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(label.ToDomain())
}

func (h *LabelHandler) Update(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var p domain.LabelPatch
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	label, err := h.labelService.Update(userID, c.Params("id"), p)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(label.ToDomain())
}

func (h *LabelHandler) Delete(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := h.labelService.Delete(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

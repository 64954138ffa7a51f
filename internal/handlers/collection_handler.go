package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

type CollectionHandler struct {
	collectionService *services.CollectionService
}

func NewCollectionHandler(collectionService *services.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

func (h *CollectionHandler) List(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	collections, err := h.collectionService.List(userID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]domain.Collection, len(collections))
	for i := range collections {
		out[i] = collections[i].ToDomain()
	}
	return c.JSON(out)
}

func (h *CollectionHandler) Get(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	collection, err := h.collectionService.Get(userID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(collection.ToDomain())
}

func (h *CollectionHandler) Create(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var in domain.CollectionInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	collection, err := h.collectionService.Create(userID, in)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(collection.ToDomain())
}

func (h *CollectionHandler) Update(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var in domain.CollectionInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	collection, err := h.collectionService.Update(userID, c.Params("id"), in)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(collection.ToDomain())
}

func (h *CollectionHandler) Delete(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := h.collectionService.Delete(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

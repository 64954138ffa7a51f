package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/owner"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List accepts collectionId, status and labelIds query parameters. status
// and labelIds may be comma-separated or repeated.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	f := domain.TaskFilter{CollectionID: c.Query("collectionId")}
	if raw := queryValues(c, "status"); len(raw) > 0 {
		f.Statuses = domain.ParseStatuses(raw...)
		if len(f.Statuses) == 0 {
			return fail(c, fiber.StatusBadRequest, "Invalid status filter")
		}
	}
	f.LabelIDs = domain.SplitIDs(queryValues(c, "labelIds")...)

	tasks, err := h.taskService.List(userID, f)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]domain.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].ToDomain()
	}
	return c.JSON(out)
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	task, err := h.taskService.Get(userID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(task.ToDomain())
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var in domain.TaskInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	task, err := h.taskService.Create(userID, in)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task.ToDomain())
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var p domain.TaskPatch
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	task, err := h.taskService.Update(userID, c.Params("id"), p)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(task.ToDomain())
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err := h.taskService.Delete(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TaskHandler) Insights(c *fiber.Ctx) error {
	userID, err := owner.UserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	insights, err := h.taskService.Insights(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(insights)
}

func queryValues(c *fiber.Ctx, key string) []string {
	raw := c.Context().QueryArgs().PeekMulti(key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if len(v) > 0 {
			out = append(out, string(v))
		}
	}
	return out
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/service"
)

// TasksHandler serves the department task catalog and the leaderboard built on it.
type TasksHandler struct {
	tasks       *service.TaskService
	leaderboard *service.LeaderboardService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks *service.TaskService, leaderboard *service.LeaderboardService) *TasksHandler {
	return &TasksHandler{tasks: tasks, leaderboard: leaderboard}
}

// List GET /departments/:department/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.UserContext(), c.Params("department"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskList(tasks)})
}

// Leaderboard GET /departments/:department/leaderboard.
func (h *TasksHandler) Leaderboard(c *fiber.Ctx) error {
	entries, err := h.leaderboard.Compute(c.UserContext(), c.Params("department"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeaderboard(entries)})
}

// Create POST /admin/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.Create(c.UserContext(), session, service.TaskInput{
		Department:  req.Department,
		Description: req.Description,
		Points:      req.Points,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Update PUT /admin/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTaskPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.Update(c.UserContext(), session, c.Params("id"), req.Description, req.Points)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete DELETE /admin/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

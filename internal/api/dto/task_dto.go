package dto

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// CreateTaskPayload is the body of POST /admin/tasks. Bounds are enforced by the service.
type CreateTaskPayload struct {
	Department  string `json:"department" validate:"required"`
	Description string `json:"description" validate:"required"`
	Points      int    `json:"points" validate:"required"`
}

// UpdateTaskPayload is the body of PUT /admin/tasks/:id.
type UpdateTaskPayload struct {
	Description string `json:"description" validate:"required"`
	Points      int    `json:"points" validate:"required"`
}

type TaskResponse struct {
	ID          string            `json:"id"`
	Department  domain.Department `json:"department"`
	Description string            `json:"description"`
	Points      int               `json:"points"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

func NewTaskResponse(task *domain.DepartmentTask) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Department:  task.Department,
		Description: task.Description,
		Points:      task.Points,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func NewTaskList(tasks []domain.DepartmentTask) []TaskResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, NewTaskResponse(&tasks[i]))
	}
	return items
}

// LeaderboardEntryResponse is one ranked member.
type LeaderboardEntryResponse struct {
	Rank        int                 `json:"rank"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	TotalPoints int                 `json:"total_points"`
	Tasks       []TaskTallyResponse `json:"tasks"`
}

type TaskTallyResponse struct {
	Description string `json:"description"`
	BasePoints  int    `json:"base_points"`
	Count       int    `json:"count"`
}

// NewLeaderboard ranks entries in the order given.
func NewLeaderboard(entries []domain.LeaderboardEntry) []LeaderboardEntryResponse {
	items := make([]LeaderboardEntryResponse, 0, len(entries))
	for i, entry := range entries {
		tallies := make([]TaskTallyResponse, 0, len(entry.Tasks))
		for _, tally := range entry.Tasks {
			tallies = append(tallies, TaskTallyResponse(tally))
		}
		items = append(items, LeaderboardEntryResponse{
			Rank:        i + 1,
			Name:        entry.Name,
			Email:       entry.Email,
			TotalPoints: entry.TotalPoints,
			Tasks:       tallies,
		})
	}
	return items
}

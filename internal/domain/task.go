package domain

import "time"

// DepartmentTask is a catalog entry mapping a task description to its point value.
type DepartmentTask struct {
	ID          string
	Department  Department
	Description string
	Points      int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

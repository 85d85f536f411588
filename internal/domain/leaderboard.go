package domain

// LeaderboardEntry aggregates one member's approved points within a department.
type LeaderboardEntry struct {
	Name        string
	Email       string
	TotalPoints int
	Tasks       []TaskTally
}

// TaskTally counts approved requests per task description.
type TaskTally struct {
	Description string
	BasePoints  int
	Count       int
}

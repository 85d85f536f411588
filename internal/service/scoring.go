package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spec-kit/points-service/internal/domain"
)

// legacyPointsPattern matches the "(N puncte)" annotation older requests carry in their task text.
var legacyPointsPattern = regexp.MustCompile(`\((\d+)\s*puncte?\)`)

// pointsCatalog maps task descriptions to points. With duplicate descriptions the first
// task in points-descending order wins.
type pointsCatalog map[string]int

func newPointsCatalog(tasks []domain.DepartmentTask) pointsCatalog {
	catalog := make(pointsCatalog, len(tasks))
	for _, task := range tasks {
		if _, seen := catalog[task.Description]; !seen {
			catalog[task.Description] = task.Points
		}
	}
	return catalog
}

func (c pointsCatalog) lookup(description string) (int, bool) {
	if points, ok := c[description]; ok {
		return points, true
	}
	points, ok := c[taskName(description)]
	return points, ok
}

// taskName strips a trailing " (...)" annotation from a task description.
func taskName(description string) string {
	if idx := strings.Index(description, " ("); idx >= 0 {
		description = description[:idx]
	}
	return strings.TrimSpace(description)
}

func legacyPoints(description string) (int, bool) {
	match := legacyPointsPattern.FindStringSubmatch(description)
	if match == nil {
		return 0, false
	}
	points, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return points, true
}

// basePoints resolves the per-repetition value of a request: the snapshot taken at
// approval, then the catalog, then the legacy annotation, else zero.
func basePoints(catalog pointsCatalog, req domain.PointRequest) int {
	if req.AwardedPoints != nil {
		return *req.AwardedPoints
	}
	if points, ok := catalog.lookup(req.Task); ok {
		return points
	}
	if points, ok := legacyPoints(req.Task); ok {
		return points
	}
	return 0
}

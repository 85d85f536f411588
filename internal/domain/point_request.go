package domain

import (
	"strconv"
	"strings"
	"time"
)

// RequestStatus enumerates lifecycle states for point requests.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// ParseRequestStatus accepts any casing of a known status.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return status, true
	}
	return "", false
}

func (s RequestStatus) Terminal() bool {
	return s != RequestStatusPending
}

// ReviewDecision is the outcome chosen by a reviewer.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// PointRequest is a member's claim that a department task was completed.
type PointRequest struct {
	ID            string
	UserID        string
	UserEmail     string
	UserName      string
	Department    Department
	Task          string
	EventDate     *string
	ProofURL      *string
	TaskNumber    *string
	Details       *string
	Status        RequestStatus
	CreatedAt     time.Time
	ReviewedBy    *string
	ReviewedAt    *time.Time
	AdminComment  *string
	AwardedPoints *int
}

// Repetitions is the multiplier applied to the task points, never below one.
func (r PointRequest) Repetitions() int {
	if r.TaskNumber == nil {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(*r.TaskNumber))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

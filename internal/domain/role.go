package domain

import (
	"slices"
	"time"
)

// Role is the privilege level resolved for an email.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSecretary Role = "secretary"
	RoleNone      Role = "none"
)

// Admin owns the tasks and requests of its departments.
type Admin struct {
	Email       string
	Departments []Department
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Secretary may review requests of its departments.
type Secretary struct {
	Email       string
	Departments []Department
	CreatedBy   string
	CreatedAt   time.Time
}

// RoleInfo is the resolved role of a principal together with its department scope.
type RoleInfo struct {
	Role        Role
	Departments []Department
}

// MemberRole is the role of an email with neither an admin nor a secretary record.
func MemberRole() RoleInfo {
	return RoleInfo{Role: RoleNone}
}

func (r RoleInfo) IsAdmin() bool {
	return r.Role == RoleAdmin
}

func (r RoleInfo) IsSecretary() bool {
	return r.Role == RoleSecretary
}

// CanReview reports whether the role may approve or reject requests at all.
func (r RoleInfo) CanReview() bool {
	return r.IsAdmin() || r.IsSecretary()
}

// HoldsDepartment is literal membership, without the GENERAL wildcard.
func (r RoleInfo) HoldsDepartment(dept Department) bool {
	return slices.Contains(r.Departments, dept)
}

// HasGeneral reports whether the role spans every department.
func (r RoleInfo) HasGeneral() bool {
	return r.HoldsDepartment(DepartmentGeneral)
}

// CanActOnDepartment is the single authorization predicate for department-scoped
// request access. GENERAL grants every department.
func (r RoleInfo) CanActOnDepartment(dept Department) bool {
	return r.HoldsDepartment(dept) || r.HasGeneral()
}

// CanReviewDepartment combines the role and scope checks for reviewing requests.
func (r RoleInfo) CanReviewDepartment(dept Department) bool {
	return r.CanReview() && r.CanActOnDepartment(dept)
}

// CanManageDepartment gates task editing, transfers and secretary management.
func (r RoleInfo) CanManageDepartment(dept Department) bool {
	return r.IsAdmin() && r.HoldsDepartment(dept)
}

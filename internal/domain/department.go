package domain

import "strings"

// Department is one of the fixed organizational units points are tracked for.
type Department string

const (
	DepartmentHR      Department = "HR"
	DepartmentPR      Department = "PR"
	DepartmentIT      Department = "IT"
	DepartmentFR      Department = "FR"
	DepartmentGeneral Department = "GENERAL"
)

// Departments lists every department in display order.
var Departments = []Department{
	DepartmentHR,
	DepartmentPR,
	DepartmentIT,
	DepartmentFR,
	DepartmentGeneral,
}

var departmentNames = map[Department]string{
	DepartmentHR:      "Human Resources",
	DepartmentPR:      "Public Relations",
	DepartmentIT:      "Information Technology",
	DepartmentFR:      "Fundraising",
	DepartmentGeneral: "General",
}

// ParseDepartment normalizes raw input into a known department.
func ParseDepartment(raw string) (Department, bool) {
	dept := Department(strings.ToUpper(strings.TrimSpace(raw)))
	if !dept.Valid() {
		return "", false
	}
	return dept, true
}

func (d Department) Valid() bool {
	_, ok := departmentNames[d]
	return ok
}

func (d Department) DisplayName() string {
	if name, ok := departmentNames[d]; ok {
		return name
	}
	return string(d)
}

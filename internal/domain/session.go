package domain

// Session is the authenticated caller passed explicitly into every service operation.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   RoleInfo
}

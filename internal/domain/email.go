package domain

import "strings"

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasEmailDomain reports whether email ends with suffix (for example "@bestis.ro")
// and has a non-empty local part.
func HasEmailDomain(email, suffix string) bool {
	email = NormalizeEmail(email)
	suffix = strings.ToLower(suffix)
	return len(email) > len(suffix) && strings.HasSuffix(email, suffix)
}

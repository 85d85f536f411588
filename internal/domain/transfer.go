package domain

import "time"

// TransferStatus enumerates lifecycle states for admin transfers.
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusAccepted TransferStatus = "accepted"
	TransferStatusRejected TransferStatus = "rejected"
	TransferStatusExpired  TransferStatus = "expired"
)

// AdminTransfer hands one department from an admin to another email.
type AdminTransfer struct {
	ID         string
	FromEmail  string
	ToEmail    string
	Department Department
	TokenHash  string
	Status     TransferStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	RejectedAt *time.Time
	RejectedBy *string
}

// ExpiredAt reports whether a pending transfer is past its deadline at now.
func (t AdminTransfer) ExpiredAt(now time.Time) bool {
	return t.Status == TransferStatusPending && now.After(t.ExpiresAt)
}

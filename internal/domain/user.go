package domain

// UserStatus represents lifecycle states for a platform user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Recipient is the contact card of a user who can receive notifications.
// Users are managed elsewhere; this service only reads them.
type Recipient struct {
	ID     string
	Name   string
	Email  string
	Status UserStatus
}

// Reachable reports whether outbound messages may be sent to the recipient.
func (r Recipient) Reachable() bool {
	return r.Status == UserStatusActive && r.Email != ""
}

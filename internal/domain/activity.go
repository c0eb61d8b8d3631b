package domain

import "time"

// ActivityType captures what an activity entry records.
type ActivityType string

const (
	ActivityTypeStatusChange   ActivityType = "STATUS_CHANGE"
	ActivityTypeComment        ActivityType = "COMMENT"
	ActivityTypeAssignment     ActivityType = "ASSIGNMENT"
	ActivityTypeTerminalAccess ActivityType = "TERMINAL_ACCESS"
)

// Activity is an immutable audit trail entry owned by a ticket.
type Activity struct {
	ID        string
	TicketID  string
	Type      ActivityType
	Content   string
	ActorID   *string
	CreatedAt time.Time
}

package events

import (
	"time"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommented       EventType = "ticket_commented"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRef carries the ticket fields notification handlers need to address recipients.
type TicketRef struct {
	Title      string                `json:"title"`
	Source     domain.TicketSource   `json:"source"`
	Priority   domain.TicketPriority `json:"priority"`
	Status     domain.TicketStatus   `json:"status"`
	HostID     *string               `json:"host_id,omitempty"`
	ReporterID *string               `json:"reporter_id,omitempty"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket      TicketRef `json:"ticket"`
	Description string    `json:"description"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    TicketRef           `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	Ticket      TicketRef             `json:"ticket"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket           TicketRef `json:"ticket"`
	PreviousAssignee *string   `json:"previous_assignee,omitempty"`
	AssigneeID       string    `json:"assignee_id"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	Ticket      TicketRef `json:"ticket"`
	BodyPreview string    `json:"body_preview"`
}

// RefOf extracts the addressing fields of a ticket.
func RefOf(t domain.Ticket) TicketRef {
	return TicketRef{
		Title:      t.Title,
		Source:     t.Source,
		Priority:   t.Priority,
		Status:     t.Status,
		HostID:     t.HostID,
		ReporterID: t.ReporterID,
		AssigneeID: t.AssigneeID,
	}
}

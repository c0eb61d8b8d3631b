package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the title limit in characters, matching tickets.title.
const MaxTitleLength = 200

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", ErrValidation, MaxTitleLength)
	}
	return nil
}

// Ticket is the aggregate for incidents and requests.
type Ticket struct {
	ID                string
	Title             string
	Description       string
	Source            TicketSource
	SourceEventID     *string
	Status            TicketStatus
	Priority          TicketPriority
	HostID            *string
	ReporterID        *string
	AssigneeID        *string
	OrganizationID    *string
	ResolutionSummary *string
	Activities        []Activity
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// NewTicketInput describes a ticket to open.
type NewTicketInput struct {
	Title          string
	Description    string
	Source         TicketSource
	SourceEventID  *string
	Priority       TicketPriority
	HostID         *string
	ReporterID     *string
	OrganizationID *string
}

// NewTicket builds a ticket in NEW. It does not record any activity.
func NewTicket(input NewTicketInput, at time.Time) (*Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	source := input.Source
	if source == "" {
		source = TicketSourceManual
	}
	priority := input.Priority
	if priority == "" {
		priority = TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	var sourceEventID *string
	if input.SourceEventID != nil && strings.TrimSpace(*input.SourceEventID) != "" {
		key := strings.TrimSpace(*input.SourceEventID)
		sourceEventID = &key
	}
	return &Ticket{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Source:         source,
		SourceEventID:  sourceEventID,
		Status:         TicketStatusNew,
		Priority:       priority,
		HostID:         input.HostID,
		ReporterID:     input.ReporterID,
		OrganizationID: input.OrganizationID,
		CreatedAt:      at,
		UpdatedAt:      at,
	}, nil
}

// ChangeType classifies a change produced by a ticket operation.
type ChangeType string

const (
	ChangeTypeStatus   ChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee ChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeComment  ChangeType = "COMMENT"
	ChangeTypeDetails  ChangeType = "DETAILS_CHANGE"
	ChangeTypeTerminal ChangeType = "TERMINAL_ACCESS"
)

// Change records one observable effect of a ticket operation.
type Change struct {
	Type        ChangeType
	OldStatus   TicketStatus
	NewStatus   TicketStatus
	OldAssignee *string
	NewAssignee *string
	OldPriority TicketPriority
	NewPriority TicketPriority
	Note        string
}

// Outcome is the result of a ticket operation: the next state of the ticket,
// the activities appended by the operation and the changes to publish.
// Ticket.Activities already contains Activities at its tail.
type Outcome struct {
	Ticket     Ticket
	Activities []Activity
	Changes    []Change
	ActorID    *string
}

// TransitionTo moves the ticket along an edge of the lifecycle.
func (t Ticket) TransitionTo(next TicketStatus, reason string, actorID *string, at time.Time) (Outcome, error) {
	if !t.Status.CanTransitionTo(next) {
		return Outcome{}, &TransitionError{Op: "transition", From: t.Status, To: next}
	}
	out := t.begin(actorID)
	prev := t.Status
	out.Ticket.Status = next
	if next == TicketStatusResolved {
		stamp := at
		out.Ticket.ResolvedAt = &stamp
	}
	content := fmt.Sprintf("%s -> %s", prev, next)
	if reason = strings.TrimSpace(reason); reason != "" {
		content += " (" + reason + ")"
	}
	out.appendActivity(ActivityTypeStatusChange, content, at)
	out.Changes = append(out.Changes, Change{Type: ChangeTypeStatus, OldStatus: prev, NewStatus: next, Note: reason})
	out.Ticket.UpdatedAt = at
	return out, nil
}

// Receive acknowledges a NEW or REOPENED ticket.
func (t Ticket) Receive(actorID *string, at time.Time) (Outcome, error) {
	return t.TransitionTo(TicketStatusReceived, "received", actorID, at)
}

// Assign sets the assignee. A RECEIVED ticket also moves to ASSIGNED; other
// statuses are left as they are.
func (t Ticket) Assign(assigneeID string, actorID *string, at time.Time) (Outcome, error) {
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return Outcome{}, fmt.Errorf("%w: assignee required", ErrValidation)
	}
	out := t.begin(actorID)
	prevAssignee := t.AssigneeID
	assignee := assigneeID
	out.Ticket.AssigneeID = &assignee
	if t.Status == TicketStatusReceived {
		out.Ticket.Status = TicketStatusAssigned
		out.Changes = append(out.Changes, Change{
			Type:      ChangeTypeStatus,
			OldStatus: TicketStatusReceived,
			NewStatus: TicketStatusAssigned,
			Note:      "assigned",
		})
	}
	out.appendActivity(ActivityTypeAssignment, "assigned to "+assigneeID, at)
	out.Changes = append(out.Changes, Change{Type: ChangeTypeAssignee, OldAssignee: prevAssignee, NewAssignee: &assignee})
	out.Ticket.UpdatedAt = at
	return out, nil
}

// Resolve records the resolution. Only IN_PROGRESS and PENDING tickets can be
// resolved. An empty summary clears resolutionSummary.
func (t Ticket) Resolve(summary string, actorID *string, at time.Time) (Outcome, error) {
	if t.Status != TicketStatusInProgress && t.Status != TicketStatusPending {
		return Outcome{}, &TransitionError{Op: "resolve", From: t.Status, To: TicketStatusResolved}
	}
	if !t.Status.CanTransitionTo(TicketStatusResolved) {
		return Outcome{}, &TransitionError{Op: "resolve", From: t.Status, To: TicketStatusResolved}
	}
	summary = strings.TrimSpace(summary)
	out := t.begin(actorID)
	prev := t.Status
	out.Ticket.Status = TicketStatusResolved
	out.Ticket.ResolutionSummary = nil
	content := "resolved"
	if summary != "" {
		out.Ticket.ResolutionSummary = &summary
		content += ": " + summary
	}
	stamp := at
	out.Ticket.ResolvedAt = &stamp
	out.appendActivity(ActivityTypeStatusChange, content, at)
	out.Changes = append(out.Changes, Change{Type: ChangeTypeStatus, OldStatus: prev, NewStatus: TicketStatusResolved, Note: summary})
	out.Ticket.UpdatedAt = at
	return out, nil
}

// AddComment appends a comment. The status never changes.
func (t Ticket) AddComment(content string, actorID *string, at time.Time) (Outcome, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Outcome{}, fmt.Errorf("%w: comment content required", ErrValidation)
	}
	out := t.begin(actorID)
	out.appendActivity(ActivityTypeComment, content, at)
	out.Changes = append(out.Changes, Change{Type: ChangeTypeComment, Note: content})
	out.Ticket.UpdatedAt = at
	return out, nil
}

// RecordTerminalAccess logs a terminal session opened against the ticket's host.
func (t Ticket) RecordTerminalAccess(content string, actorID *string, at time.Time) (Outcome, error) {
	out := t.begin(actorID)
	out.appendActivity(ActivityTypeTerminalAccess, strings.TrimSpace(content), at)
	out.Changes = append(out.Changes, Change{Type: ChangeTypeTerminal, Note: content})
	out.Ticket.UpdatedAt = at
	return out, nil
}

// UpdateDetails edits title, description and priority without touching the status.
func (t Ticket) UpdateDetails(title, description string, priority TicketPriority, at time.Time) (Outcome, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return Outcome{}, err
	}
	if priority == "" {
		priority = t.Priority
	}
	if !priority.Valid() {
		return Outcome{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	out := t.begin(nil)
	out.Ticket.Title = title
	out.Ticket.Description = strings.TrimSpace(description)
	out.Ticket.Priority = priority
	out.Changes = append(out.Changes, Change{Type: ChangeTypeDetails, OldPriority: t.Priority, NewPriority: priority})
	out.Ticket.UpdatedAt = at
	return out, nil
}

func (t Ticket) begin(actorID *string) Outcome {
	next := t
	next.Activities = append(make([]Activity, 0, len(t.Activities)+1), t.Activities...)
	return Outcome{Ticket: next, ActorID: actorID}
}

func (o *Outcome) appendActivity(kind ActivityType, content string, at time.Time) {
	activity := Activity{
		ID:        uuid.NewString(),
		TicketID:  o.Ticket.ID,
		Type:      kind,
		Content:   content,
		ActorID:   o.ActorID,
		CreatedAt: at,
	}
	o.Activities = append(o.Activities, activity)
	o.Ticket.Activities = append(o.Ticket.Activities, activity)
}

// TicketStats aggregates ticket counts for dashboards.
type TicketStats struct {
	Total      int64
	New        int64
	InProgress int64
	Pending    int64
	Resolved   int64
	Completed  int64
	Closed     int64
	Critical   int64
	High       int64
}

package dto

import (
	"time"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	Source         domain.TicketSource   `json:"source"`
	HostID         *string               `json:"host_id"`
	OrganizationID *string               `json:"organization_id"`
}

// UpdateTicketRequest payload.
type UpdateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TransitionTicketRequest payload.
type TransitionTicketRequest struct {
	Status domain.TicketStatus `json:"status"`
	Reason string              `json:"reason"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	Summary string `json:"summary"`
}

// CommentRequest payload.
type CommentRequest struct {
	Content string `json:"content"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Source       domain.TicketSource   `json:"source"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	HostID       *string               `json:"host_id"`
	AssigneeID   *string               `json:"assignee_id"`
	NextStatuses []domain.TicketStatus `json:"next_statuses"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description       string             `json:"description"`
	SourceEventID     *string            `json:"source_event_id"`
	ReporterID        *string            `json:"reporter_id"`
	OrganizationID    *string            `json:"organization_id"`
	ResolutionSummary *string            `json:"resolution_summary"`
	ResolvedAt        *time.Time         `json:"resolved_at"`
	Version           int                `json:"version"`
	Activities        []ActivityResponse `json:"activities"`
}

// ActivityResponse is one audit trail entry.
type ActivityResponse struct {
	ID        string              `json:"id"`
	Type      domain.ActivityType `json:"type"`
	Content   string              `json:"content"`
	ActorID   *string             `json:"actor_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// TicketStatsResponse aggregates ticket counts.
type TicketStatsResponse struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Pending    int64 `json:"pending"`
	Resolved   int64 `json:"resolved"`
	Completed  int64 `json:"completed"`
	Closed     int64 `json:"closed"`
	Critical   int64 `json:"critical_open"`
	High       int64 `json:"high_open"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewTicketSummary maps a ticket into its list representation.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           t.ID,
		Title:        t.Title,
		Source:       t.Source,
		Status:       t.Status,
		Priority:     t.Priority,
		HostID:       t.HostID,
		AssigneeID:   t.AssigneeID,
		NextStatuses: t.Status.NextStatuses(),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket with its activities.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	activities := make([]ActivityResponse, 0, len(t.Activities))
	for _, a := range t.Activities {
		activities = append(activities, ActivityResponse{
			ID:        a.ID,
			Type:      a.Type,
			Content:   a.Content,
			ActorID:   a.ActorID,
			CreatedAt: a.CreatedAt,
		})
	}
	return TicketDetailResponse{
		TicketSummary:     NewTicketSummary(t),
		Description:       t.Description,
		SourceEventID:     t.SourceEventID,
		ReporterID:        t.ReporterID,
		OrganizationID:    t.OrganizationID,
		ResolutionSummary: t.ResolutionSummary,
		ResolvedAt:        t.ResolvedAt,
		Version:           t.Version,
		Activities:        activities,
	}
}

// NewTicketStats maps aggregate counts.
func NewTicketStats(s domain.TicketStats) TicketStatsResponse {
	return TicketStatsResponse(s)
}

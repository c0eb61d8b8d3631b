package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/events"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	gate       *DedupGate
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Gate       *DedupGate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := deps.Gate
	if gate == nil {
		gate = NewDedupGate(deps.TicketRepo, nil, logger)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		gate:       gate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create opens a ticket. Inputs carrying a source event id already seen return
// the existing ticket with created=false and publish nothing.
func (s *TicketService) Create(ctx context.Context, input domain.NewTicketInput) (*domain.Ticket, bool, error) {
	ticket, created, err := s.gate.CreateOrGetExisting(ctx, input.SourceEventID, func() (*domain.Ticket, error) {
		return domain.NewTicket(input, s.now())
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("ticket created",
			zap.String("ticket_id", ticket.ID),
			zap.String("source", string(ticket.Source)),
			zap.String("priority", string(ticket.Priority)),
		)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: ticket.ID,
			ActorID:  input.ReporterID,
			Payload: events.TicketCreatedPayload{
				Ticket:      events.RefOf(*ticket),
				Description: ticket.Description,
			},
		})
	}
	return ticket, created, nil
}

// Get returns a ticket with its activities.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// List returns a filtered page of tickets and the total match count.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListOpen returns unfinished tickets, most urgent first.
func (s *TicketService) ListOpen(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return s.tickets.ListOpen(ctx, limit)
}

// Stats aggregates ticket counts.
func (s *TicketService) Stats(ctx context.Context) (domain.TicketStats, error) {
	return s.tickets.Stats(ctx)
}

// UpdateDetails edits title, description and priority.
func (s *TicketService) UpdateDetails(ctx context.Context, id, title, description string, priority domain.TicketPriority, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		out, err := t.UpdateDetails(title, description, priority, at)
		out.ActorID = actorID
		return out, err
	})
}

// Receive acknowledges a NEW or REOPENED ticket.
func (s *TicketService) Receive(ctx context.Context, id string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.Receive(actorID, at)
	})
}

// Assign sets the assignee.
func (s *TicketService) Assign(ctx context.Context, id, assigneeID string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.Assign(assigneeID, actorID, at)
	})
}

// Transition moves the ticket along one lifecycle edge.
func (s *TicketService) Transition(ctx context.Context, id string, next domain.TicketStatus, reason string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.TransitionTo(next, reason, actorID, at)
	})
}

// Resolve records the resolution summary.
func (s *TicketService) Resolve(ctx context.Context, id, summary string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.Resolve(summary, actorID, at)
	})
}

// AddComment appends a comment activity.
func (s *TicketService) AddComment(ctx context.Context, id, content string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.AddComment(content, actorID, at)
	})
}

// RecordTerminalAccess logs that a terminal session was opened for the ticket.
func (s *TicketService) RecordTerminalAccess(ctx context.Context, id, content string, actorID *string) (*domain.Ticket, error) {
	return s.mutate(ctx, id, actorID, func(t domain.Ticket, at time.Time) (domain.Outcome, error) {
		return t.RecordTerminalAccess(content, actorID, at)
	})
}

// mutate loads the ticket, applies op and stores the outcome guarded by the
// loaded version. A concurrent writer makes it fail with domain.ErrConflict.
func (s *TicketService) mutate(ctx context.Context, id string, actorID *string, op func(domain.Ticket, time.Time) (domain.Outcome, error)) (*domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome, err := op(*current, s.now())
	if err != nil {
		return nil, err
	}
	saved, err := s.tickets.Apply(ctx, outcome, current.Version)
	if err != nil {
		return nil, err
	}
	s.publishChanges(ctx, saved, outcome.Changes, actorID)
	return saved, nil
}

func (s *TicketService) publishChanges(ctx context.Context, ticket *domain.Ticket, changes []domain.Change, actorID *string) {
	ref := events.RefOf(*ticket)
	for _, change := range changes {
		event := events.Event{TicketID: ticket.ID, ActorID: actorID}
		switch change.Type {
		case domain.ChangeTypeStatus:
			event.Type = events.EventTicketStatusChanged
			event.Payload = events.TicketStatusChangedPayload{
				Ticket:    ref,
				OldStatus: change.OldStatus,
				NewStatus: change.NewStatus,
				Comment:   change.Note,
			}
		case domain.ChangeTypeAssignee:
			event.Type = events.EventTicketAssigned
			event.Payload = events.TicketAssignedPayload{
				Ticket:           ref,
				PreviousAssignee: change.OldAssignee,
				AssigneeID:       *change.NewAssignee,
			}
		case domain.ChangeTypeComment:
			event.Type = events.EventTicketCommented
			event.Payload = events.TicketCommentedPayload{
				Ticket:      ref,
				BodyPreview: preview(change.Note, 140),
			}
		case domain.ChangeTypeDetails:
			if change.OldPriority == change.NewPriority {
				continue
			}
			event.Type = events.EventTicketPriorityChanged
			event.Payload = events.TicketPriorityChangedPayload{
				Ticket:      ref,
				OldPriority: change.OldPriority,
				NewPriority: change.NewPriority,
			}
		default:
			continue
		}
		s.publishEvent(ctx, event)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

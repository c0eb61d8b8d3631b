package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/events"
)

const ticketEntity = "TICKET"

var (
	operatorChannels = []domain.NotificationChannel{domain.ChannelInApp, domain.ChannelSlack}
	hostDownChannels = []domain.NotificationChannel{domain.ChannelInApp, domain.ChannelSlack, domain.ChannelTeams}
	assigneeChannels = []domain.NotificationChannel{domain.ChannelInApp, domain.ChannelSlack, domain.ChannelEmail}
	inAppOnly        = []domain.NotificationChannel{domain.ChannelInApp}
)

// RegisterHandlers subscribes to ticket events.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleTicketStatusChanged)
	dispatcher.Subscribe(events.EventTicketPriorityChanged, s.handleTicketPriorityChanged)
	dispatcher.Subscribe(events.EventTicketCommented, s.handleTicketCommented)
}

func (s *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	ticket := payload.Ticket
	entityID := event.TicketID

	_, err := s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: s.operators,
		Type:         domain.NotificationTicketCreated,
		Channels:     operatorChannels,
		Title:        fmt.Sprintf("New ticket: %s", ticket.Title),
		Content:      fmt.Sprintf("Priority %s, source %s.\n%s", ticket.Priority, ticket.Source, payload.Description),
		EntityType:   ticketEntity,
		EntityID:     &entityID,
		Metadata:     map[string]any{"priority": string(ticket.Priority), "source": string(ticket.Source)},
	})
	if err != nil || !ticket.Source.Monitoring() || ticket.HostID == nil {
		return err
	}

	_, err = s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: s.operators,
		Type:         domain.NotificationHostDown,
		Channels:     hostDownChannels,
		Title:        ticket.Title,
		Content:      payload.Description,
		EntityType:   ticketEntity,
		EntityID:     &entityID,
		Metadata:     map[string]any{"host_id": *ticket.HostID, "priority": string(ticket.Priority)},
	})
	return err
}

func (s *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	entityID := event.TicketID
	_, err := s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: []string{payload.AssigneeID},
		Type:         domain.NotificationTicketAssigned,
		Channels:     assigneeChannels,
		Title:        fmt.Sprintf("Ticket assigned: %s", payload.Ticket.Title),
		Content:      fmt.Sprintf("You were assigned a %s priority ticket.", payload.Ticket.Priority),
		EntityType:   ticketEntity,
		EntityID:     &entityID,
	})
	return err
}

func (s *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	content := fmt.Sprintf("%s -> %s", payload.OldStatus, payload.NewStatus)
	if payload.Comment != "" {
		content += "\n" + payload.Comment
	}
	entityID := event.TicketID
	_, err := s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: participants(payload.Ticket, nil),
		Type:         domain.NotificationTicketStatusChanged,
		Channels:     inAppOnly,
		Title:        fmt.Sprintf("Ticket %s: %s", payload.NewStatus, payload.Ticket.Title),
		Content:      content,
		EntityType:   ticketEntity,
		EntityID:     &entityID,
		Metadata:     map[string]any{"old_status": string(payload.OldStatus), "new_status": string(payload.NewStatus)},
	})
	return err
}

func (s *NotificationService) handleTicketPriorityChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPriorityChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	entityID := event.TicketID
	_, err := s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: participants(payload.Ticket, event.ActorID),
		Type:         domain.NotificationTicketPriorityChanged,
		Channels:     inAppOnly,
		Title:        fmt.Sprintf("Priority %s: %s", payload.NewPriority, payload.Ticket.Title),
		Content:      fmt.Sprintf("%s -> %s", payload.OldPriority, payload.NewPriority),
		EntityType:   ticketEntity,
		EntityID:     &entityID,
	})
	return err
}

func (s *NotificationService) handleTicketCommented(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	recipients := participants(payload.Ticket, event.ActorID)
	if len(recipients) == 0 {
		return nil
	}
	entityID := event.TicketID
	_, err := s.Dispatch(ctx, NotificationRequest{
		RecipientIDs: recipients,
		Type:         domain.NotificationTicketCommented,
		Channels:     inAppOnly,
		Title:        fmt.Sprintf("New comment on %s", payload.Ticket.Title),
		Content:      payload.BodyPreview,
		EntityType:   ticketEntity,
		EntityID:     &entityID,
	})
	return err
}

// participants returns the reporter and assignee, leaving out exclude.
func participants(ticket events.TicketRef, exclude *string) []string {
	var out []string
	for _, id := range []*string{ticket.ReporterID, ticket.AssigneeID} {
		if id == nil || *id == "" {
			continue
		}
		if exclude != nil && *id == *exclude {
			continue
		}
		out = append(out, *id)
	}
	return uniqueStrings(out)
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("event %s: unexpected payload %T", event.Type, event.Payload)
}


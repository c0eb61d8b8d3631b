package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/adapter"
	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/observability"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// IngestResult describes what happened to one webhook delivery.
type IngestResult struct {
	Adapter string
	Created bool
	Ticket  *domain.Ticket
	HostID  *string
	// Reason is set when the payload produced no incident.
	Reason string
}

// Skipped reports whether the payload was not actionable.
func (r IngestResult) Skipped() bool {
	return r.Ticket == nil
}

// IngestService turns monitoring webhooks into tickets.
type IngestService struct {
	adapters *adapter.Registry
	hosts    repository.HostResolver
	tickets  *TicketService
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// IngestDependencies bundles collaborators for the ingest service.
type IngestDependencies struct {
	Adapters *adapter.Registry
	Hosts    repository.HostResolver
	Tickets  *TicketService
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewIngestService constructs the service.
func NewIngestService(deps IngestDependencies) *IngestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	adapters := deps.Adapters
	if adapters == nil {
		adapters = adapter.DefaultRegistry()
	}
	return &IngestService{
		adapters: adapters,
		hosts:    deps.Hosts,
		tickets:  deps.Tickets,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Adapters lists the registered adapter names.
func (s *IngestService) Adapters() []string {
	return s.adapters.Names()
}

// Ingest normalizes payload with the named adapter and opens a ticket for it.
// Redeliveries of the same event return the original ticket with Created=false.
func (s *IngestService) Ingest(ctx context.Context, adapterName string, payload []byte, headers map[string]string) (IngestResult, error) {
	a, ok := s.adapters.Lookup(adapterName)
	if !ok {
		return IngestResult{}, domain.NewNotFound("adapter", adapterName)
	}
	result := IngestResult{Adapter: a.Name()}

	normalized := a.Normalize(payload, headers)
	if normalized.Skipped() {
		s.logger.Info("webhook skipped", zap.String("adapter", a.Name()), zap.String("reason", normalized.Reason))
		s.metrics.RecordIngest(a.Name(), "skipped")
		result.Reason = normalized.Reason
		return result, nil
	}
	event := normalized.Event

	externalID := event.ExternalID
	if externalID == "" {
		externalID, _ = a.ExternalID(payload)
	}
	result.HostID = s.resolveHost(ctx, a.Name(), externalID)

	key := event.CorrelationKey
	ticket, created, err := s.tickets.Create(ctx, domain.NewTicketInput{
		Title:         event.Title,
		Description:   event.Description,
		Source:        event.Source,
		SourceEventID: &key,
		Priority:      event.Priority,
		HostID:        result.HostID,
	})
	if err != nil {
		s.metrics.RecordIngest(a.Name(), "error")
		return IngestResult{}, err
	}
	result.Ticket = ticket
	result.Created = created
	if created {
		s.metrics.RecordIngest(a.Name(), "created")
	} else {
		s.metrics.RecordIngest(a.Name(), "duplicate")
	}
	return result, nil
}

func (s *IngestService) resolveHost(ctx context.Context, adapterName, externalID string) *string {
	if s.hosts == nil || strings.TrimSpace(externalID) == "" {
		return nil
	}
	hostID, ok, err := s.hosts.FindHostIDByExternalID(ctx, adapterName, externalID)
	if err != nil {
		s.logger.Warn("host lookup failed",
			zap.String("adapter", adapterName),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
		return nil
	}
	if !ok {
		s.logger.Debug("no host mapped", zap.String("adapter", adapterName), zap.String("external_id", externalID))
		return nil
	}
	return &hostID
}

package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// CorrelationCache is an advisory source-event-id -> ticket-id lookup.
type CorrelationCache interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, ticketID string) error
	Forget(ctx context.Context, key string) error
}

// DedupGate turns repeated deliveries of the same external event into a single ticket.
type DedupGate struct {
	tickets repository.TicketRepository
	cache   CorrelationCache
	logger  *zap.Logger
}

// NewDedupGate builds the gate. cache may be nil.
func NewDedupGate(tickets repository.TicketRepository, cache CorrelationCache, logger *zap.Logger) *DedupGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupGate{tickets: tickets, cache: cache, logger: logger}
}

// CreateOrGetExisting persists the ticket produced by build unless a ticket
// with the same source event id already exists. build is not called for
// duplicates detected before the insert. The bool reports whether a ticket was created.
func (g *DedupGate) CreateOrGetExisting(ctx context.Context, sourceEventID *string, build func() (*domain.Ticket, error)) (*domain.Ticket, bool, error) {
	if sourceEventID == nil || strings.TrimSpace(*sourceEventID) == "" {
		ticket, err := build()
		if err != nil {
			return nil, false, err
		}
		ticket.SourceEventID = nil
		if err := g.tickets.Create(ctx, ticket); err != nil {
			return nil, false, err
		}
		return ticket, true, nil
	}
	key := strings.TrimSpace(*sourceEventID)

	if existing, ok := g.cached(ctx, key); ok {
		g.logDuplicate(existing, "cache")
		return existing, false, nil
	}

	ticket, err := build()
	if err != nil {
		return nil, false, err
	}
	ticket.SourceEventID = &key

	stored, created, err := g.tickets.CreateIfAbsent(ctx, ticket)
	if err != nil {
		return nil, false, err
	}
	if !created {
		g.logDuplicate(stored, "storage")
	}
	if g.cache != nil {
		if err := g.cache.Remember(ctx, key, stored.ID); err != nil {
			g.logger.Warn("dedup cache write failed", zap.String("source_event_id", key), zap.Error(err))
		}
	}
	return stored, created, nil
}

func (g *DedupGate) cached(ctx context.Context, key string) (*domain.Ticket, bool) {
	if g.cache == nil {
		return nil, false
	}
	id, ok, err := g.cache.Lookup(ctx, key)
	if err != nil {
		g.logger.Warn("dedup cache lookup failed", zap.String("source_event_id", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	ticket, err := g.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = g.cache.Forget(ctx, key)
		} else {
			g.logger.Warn("dedup cache hit could not be loaded", zap.String("ticket_id", id), zap.Error(err))
		}
		return nil, false
	}
	if ticket.SourceEventID == nil || *ticket.SourceEventID != key {
		_ = g.cache.Forget(ctx, key)
		return nil, false
	}
	return ticket, true
}

func (g *DedupGate) logDuplicate(ticket *domain.Ticket, via string) {
	g.logger.Info("duplicate event ignored",
		zap.String("ticket_id", ticket.ID),
		zap.String("source_event_id", *ticket.SourceEventID),
		zap.String("detected_by", via),
	)
}

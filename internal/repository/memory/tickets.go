// Package memory provides process-local repositories used when no database is
// configured and by service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// TicketStore is a mutex-guarded repository.TicketRepository.
type TicketStore struct {
	mu       sync.RWMutex
	tickets  map[string]domain.Ticket
	bySource map[string]string
}

var _ repository.TicketRepository = (*TicketStore)(nil)

// NewTicketStore returns an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{
		tickets:  make(map[string]domain.Ticket),
		bySource: make(map[string]string),
	}
}

func (s *TicketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.SourceEventID != nil {
		if _, taken := s.bySource[*ticket.SourceEventID]; taken {
			return fmt.Errorf("%w: source event %s already ingested", domain.ErrConflict, *ticket.SourceEventID)
		}
	}
	s.put(*ticket)
	return nil
}

func (s *TicketStore) CreateIfAbsent(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.SourceEventID != nil {
		if id, taken := s.bySource[*ticket.SourceEventID]; taken {
			existing := clone(s.tickets[id])
			return &existing, false, nil
		}
	}
	s.put(*ticket)
	return ticket, true, nil
}

func (s *TicketStore) put(ticket domain.Ticket) {
	s.tickets[ticket.ID] = clone(ticket)
	if ticket.SourceEventID != nil {
		s.bySource[*ticket.SourceEventID] = ticket.ID
	}
}

func (s *TicketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, domain.NewNotFound("ticket", id)
	}
	out := clone(ticket)
	return &out, nil
}

func (s *TicketStore) GetBySourceEventID(ctx context.Context, key string) (*domain.Ticket, error) {
	s.mu.RLock()
	id, ok := s.bySource[key]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFound("ticket", key)
	}
	return s.GetByID(ctx, id)
}

func (s *TicketStore) Apply(_ context.Context, outcome domain.Outcome, expectedVersion int) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tickets[outcome.Ticket.ID]
	if !ok {
		return nil, domain.NewNotFound("ticket", outcome.Ticket.ID)
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: ticket %s changed since version %d", domain.ErrConflict, current.ID, expectedVersion)
	}
	next := clone(outcome.Ticket)
	next.Activities = append(clone(current).Activities, outcome.Activities...)
	next.Version = expectedVersion + 1
	s.tickets[next.ID] = next
	out := clone(next)
	return &out, nil
}

func (s *TicketStore) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	keyword := ""
	if filter.Keyword != nil {
		keyword = strings.ToLower(strings.TrimSpace(*filter.Keyword))
	}
	matches := s.collect(func(t domain.Ticket) bool {
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			return false
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			return false
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(t.Title), keyword) &&
			!strings.Contains(strings.ToLower(t.Description), keyword) {
			return false
		}
		return true
	})
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	total := int64(len(matches))
	return page(matches, filter.Limit, filter.Offset), total, nil
}

func (s *TicketStore) ListOpen(_ context.Context, limit int) ([]domain.Ticket, error) {
	matches := s.collect(func(t domain.Ticket) bool { return t.Status.Open() })
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := matches[i].Priority.Rank(), matches[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return page(matches, limit, 0), nil
}

func (s *TicketStore) Stats(context.Context) (domain.TicketStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.TicketStats
	for _, t := range s.tickets {
		stats.Total++
		switch t.Status {
		case domain.TicketStatusNew:
			stats.New++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusPending:
			stats.Pending++
		case domain.TicketStatusResolved:
			stats.Resolved++
		case domain.TicketStatusCompleted:
			stats.Completed++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
		if t.Status.Open() {
			switch t.Priority {
			case domain.TicketPriorityCritical:
				stats.Critical++
			case domain.TicketPriorityHigh:
				stats.High++
			}
		}
	}
	return stats, nil
}

func (s *TicketStore) collect(keep func(domain.Ticket) bool) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if keep(t) {
			c := clone(t)
			c.Activities = nil
			out = append(out, c)
		}
	}
	return out
}

func clone(t domain.Ticket) domain.Ticket {
	t.Activities = append([]domain.Activity(nil), t.Activities...)
	return t
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/events"
	"github.com/spec-kit/incident-hub/internal/repository/memory"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func strPtr(s string) *string { return &s }

// recorder captures every published event of the given types.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(d events.Dispatcher, types ...events.EventType) *recorder {
	r := &recorder{}
	for _, typ := range types {
		d.Subscribe(typ, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		})
	}
	return r
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var allTicketEvents = []events.EventType{
	events.EventTicketCreated,
	events.EventTicketStatusChanged,
	events.EventTicketPriorityChanged,
	events.EventTicketAssigned,
	events.EventTicketCommented,
}

type ticketFixture struct {
	store      *memory.TicketStore
	dispatcher events.Dispatcher
	events     *recorder
	svc        *TicketService
}

func newTicketFixture(t *testing.T) ticketFixture {
	t.Helper()
	store := memory.NewTicketStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	rec := newRecorder(dispatcher, allTicketEvents...)
	svc := NewTicketService(TicketDependencies{
		TicketRepo: store,
		Dispatcher: dispatcher,
		Clock:      clock,
	})
	return ticketFixture{store: store, dispatcher: dispatcher, events: rec, svc: svc}
}

func (f ticketFixture) create(t *testing.T, title string, key *string) *domain.Ticket {
	t.Helper()
	ticket, created, err := f.svc.Create(context.Background(), domain.NewTicketInput{
		Title:         title,
		Source:        domain.TicketSourceManual,
		SourceEventID: key,
		ReporterID:    strPtr("reporter-1"),
	})
	require.NoError(t, err)
	require.True(t, created)
	return ticket
}

package adapter

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// Capability advertises what an adapter can do besides receiving webhooks.
type Capability string

const (
	CapabilityWebhookReceive    Capability = "WEBHOOK_RECEIVE"
	CapabilityStatusQuery       Capability = "STATUS_QUERY"
	CapabilityActionExecute     Capability = "ACTION_EXECUTE"
	CapabilityLogCollect        Capability = "LOG_COLLECT"
	CapabilityBidirectionalSync Capability = "BIDIRECTIONAL_SYNC"
)

// Result is the outcome of normalizing a payload. Event is nil when the payload
// is not actionable; Reason then says why.
type Result struct {
	Event  *domain.IncidentEvent
	Reason string
}

// Skipped reports whether no incident was produced.
func (r Result) Skipped() bool {
	return r.Event == nil
}

func skip(reason string) Result {
	return Result{Reason: reason}
}

// Adapter parses one monitoring tool's webhook payloads. Implementations are
// pure: they never perform I/O and never return errors for bad payloads.
type Adapter interface {
	Name() string
	Source() domain.TicketSource
	Capabilities() []Capability
	Normalize(payload []byte, headers map[string]string) Result
	// ExternalID extracts the tool-side identifier used for host mapping.
	ExternalID(payload []byte) (string, bool)
}

// MapSeverity converts a tool severity label into a ticket priority.
func MapSeverity(severity string) domain.TicketPriority {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical":
		return domain.TicketPriorityCritical
	case "error", "high":
		return domain.TicketPriorityHigh
	case "warning":
		return domain.TicketPriorityMedium
	default:
		return domain.TicketPriorityLow
	}
}

// Registry is the fixed adapter table built at startup.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry indexes adapters by name. Later entries win on duplicate names.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// DefaultRegistry holds every built-in adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(NewUptimeKuma(), NewPrometheus())
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names lists registered adapter names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ticketTitle caps a normalized title so the ticket is never rejected for its length.
func ticketTitle(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= domain.MaxTitleLength {
		return s
	}
	return truncate(s, domain.MaxTitleLength-3)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

package domain

import (
	"fmt"
	"strings"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusReceived   TicketStatus = "RECEIVED"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusReopened   TicketStatus = "REOPENED"
)

// ticketTransitions is the directed edge table of the lifecycle. CLOSED has no
// outgoing edges; the only way back from RESOLVED/COMPLETED is through REOPENED.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:        {TicketStatusReceived, TicketStatusClosed},
	TicketStatusReceived:   {TicketStatusAssigned},
	TicketStatusAssigned:   {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusPending, TicketStatusResolved},
	TicketStatusPending:    {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusCompleted, TicketStatusReopened},
	TicketStatusCompleted:  {TicketStatusClosed, TicketStatusReopened},
	TicketStatusReopened:   {TicketStatusReceived},
	TicketStatusClosed:     {},
}

// TicketStatuses lists every known status in lifecycle order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusReceived,
		TicketStatusAssigned,
		TicketStatusInProgress,
		TicketStatusPending,
		TicketStatusResolved,
		TicketStatusCompleted,
		TicketStatusClosed,
		TicketStatusReopened,
	}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := ticketTransitions[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> next exists.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, candidate := range ticketTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable in one step.
func (s TicketStatus) NextStatuses() []TicketStatus {
	return append([]TicketStatus(nil), ticketTransitions[s]...)
}

// Terminal reports whether s is a known status with no outgoing edges.
func (s TicketStatus) Terminal() bool {
	return s.Valid() && len(ticketTransitions[s]) == 0
}

// Open reports whether the ticket still needs work.
func (s TicketStatus) Open() bool {
	return s != TicketStatusClosed && s != TicketStatusCompleted
}

// ParseTicketStatus converts user input into a TicketStatus.
func ParseTicketStatus(val string) (TicketStatus, error) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(val)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown ticket status %q", ErrValidation, val)
	}
	return status, nil
}

// TicketPriority enumerates incident urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// Rank orders priorities, lower is more urgent.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityCritical:
		return 1
	case TicketPriorityHigh:
		return 2
	case TicketPriorityMedium:
		return 3
	default:
		return 4
	}
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// ParseTicketPriority converts user input into a TicketPriority.
func ParseTicketPriority(val string) (TicketPriority, error) {
	priority := TicketPriority(strings.ToUpper(strings.TrimSpace(val)))
	if !priority.Valid() {
		return "", fmt.Errorf("%w: unknown ticket priority %q", ErrValidation, val)
	}
	return priority, nil
}

// TicketSource identifies where a ticket came from.
type TicketSource string

const (
	TicketSourceManual          TicketSource = "MANUAL"
	TicketSourceUptimeKuma      TicketSource = "UPTIME_KUMA"
	TicketSourcePrometheus      TicketSource = "PROMETHEUS"
	TicketSourceCustomerRequest TicketSource = "CUSTOMER_REQUEST"
)

// Monitoring reports whether the source is an automated monitoring tool.
func (s TicketSource) Monitoring() bool {
	return s == TicketSourceUptimeKuma || s == TicketSourcePrometheus
}

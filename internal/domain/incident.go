package domain

// IncidentEvent is a monitoring event normalized from a source-specific payload.
type IncidentEvent struct {
	Title          string
	Description    string
	Priority       TicketPriority
	CorrelationKey string
	Source         TicketSource
	ExternalID     string
}

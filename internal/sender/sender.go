// Package sender delivers notifications over external channels.
package sender

import (
	"context"
	"fmt"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// Sender delivers one notification over one channel. Send returns nil when
// the message was handed over; ordinary delivery failures come back as errors.
type Sender interface {
	Channel() domain.NotificationChannel
	Send(ctx context.Context, n domain.Notification) error
	Enabled() bool
}

// Registry is the fixed channel table built once at startup.
type Registry struct {
	senders map[domain.NotificationChannel]Sender
}

// NewRegistry indexes senders by channel. A second sender for the same channel is rejected.
func NewRegistry(senders ...Sender) (*Registry, error) {
	r := &Registry{senders: make(map[domain.NotificationChannel]Sender, len(senders))}
	for _, s := range senders {
		if _, dup := r.senders[s.Channel()]; dup {
			return nil, fmt.Errorf("duplicate sender for channel %s", s.Channel())
		}
		r.senders[s.Channel()] = s
	}
	return r, nil
}

// Lookup returns the sender of channel.
func (r *Registry) Lookup(channel domain.NotificationChannel) (Sender, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.senders[channel]
	return s, ok
}

// Enabled reports whether channel has a configured sender.
func (r *Registry) Enabled(channel domain.NotificationChannel) bool {
	s, ok := r.Lookup(channel)
	return ok && s.Enabled()
}

// Channels lists registered channels.
func (r *Registry) Channels() []domain.NotificationChannel {
	out := make([]domain.NotificationChannel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// HostMap is a static repository.HostResolver keyed by adapter and external id.
type HostMap struct {
	mu    sync.RWMutex
	hosts map[string]string
}

var _ repository.HostResolver = (*HostMap)(nil)

// NewHostMap returns an empty mapping.
func NewHostMap() *HostMap {
	return &HostMap{hosts: make(map[string]string)}
}

// Add maps externalID reported by adapterType onto hostID.
func (m *HostMap) Add(adapterType, externalID, hostID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[adapterType+"\x00"+externalID] = hostID
}

func (m *HostMap) FindHostIDByExternalID(_ context.Context, adapterType, externalID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hostID, ok := m.hosts[adapterType+"\x00"+externalID]
	return hostID, ok, nil
}

// Directory is a static repository.RecipientDirectory.
type Directory struct {
	mu         sync.RWMutex
	recipients map[string]domain.Recipient
}

var _ repository.RecipientDirectory = (*Directory)(nil)

// NewDirectory seeds the directory with recipients.
func NewDirectory(recipients ...domain.Recipient) *Directory {
	d := &Directory{recipients: make(map[string]domain.Recipient, len(recipients))}
	for _, r := range recipients {
		d.recipients[r.ID] = r
	}
	return d
}

func (d *Directory) GetRecipient(_ context.Context, userID string) (*domain.Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.recipients[userID]
	if !ok {
		return nil, domain.NewNotFound("user", userID)
	}
	return &r, nil
}

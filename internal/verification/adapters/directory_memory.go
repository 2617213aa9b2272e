package adapters

import (
	"context"
	"sync"

	"trustgate/internal/verification/ports"
	id "trustgate/pkg/domain"
)

// InMemoryDirectory is an OwnerDirectory backed by a map.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	owners map[id.AccountID]ports.Owner
}

func NewInMemoryDirectory(owners ...ports.Owner) *InMemoryDirectory {
	d := &InMemoryDirectory{owners: make(map[id.AccountID]ports.Owner, len(owners))}
	for _, o := range owners {
		d.owners[o.AccountID] = o
	}
	return d
}

// Put adds or replaces a profile.
func (d *InMemoryDirectory) Put(owner ports.Owner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owners[owner.AccountID] = owner
}

// Upsert is Put with the PostgresDirectory signature, for seeding.
func (d *InMemoryDirectory) Upsert(_ context.Context, owner ports.Owner) error {
	d.Put(owner)
	return nil
}

func (d *InMemoryDirectory) Lookup(_ context.Context, accountIDs []id.AccountID) (map[id.AccountID]ports.Owner, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[id.AccountID]ports.Owner, len(accountIDs))
	for _, accountID := range accountIDs {
		if o, ok := d.owners[accountID]; ok {
			out[accountID] = o
		}
	}
	return out, nil
}

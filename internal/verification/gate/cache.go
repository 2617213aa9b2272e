package gate

import (
	"context"

	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
)

// Entry is a cached gate tagged with the store generation it was computed
// under. An entry is served only while that generation is still current.
type Entry struct {
	Gate       trust.Gate `json:"gate"`
	Generation uint64     `json:"generation"`
}

// Cache stores computed gates. It holds no freshness state of its own: the
// generation an entry is checked against comes from the document store, so
// a cache fault can cause misses but never a stale hit.
type Cache interface {
	Get(ctx context.Context, accountID id.AccountID) (Entry, bool, error)
	Set(ctx context.Context, accountID id.AccountID, entry Entry) error
	Delete(ctx context.Context, accountID id.AccountID) error
}

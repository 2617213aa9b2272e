// Package ports defines the collaborators the verification engine calls
// outside its own storage: account profile lookups for the review queue,
// reviewer authorization, audit emission and gate cache invalidation.
package ports

import (
	"context"

	id "trustgate/pkg/domain"
	audit "trustgate/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks OwnerDirectory,CapabilityChecker,AuditPublisher,GateInvalidator

// Owner is the display profile of a document owner, shown to reviewers.
type Owner struct {
	AccountID   id.AccountID `json:"account_id"`
	DisplayName string       `json:"display_name"`
	Email       string       `json:"email"`
}

// OwnerDirectory resolves account profiles. Unknown accounts are absent
// from the result, not an error.
type OwnerDirectory interface {
	Lookup(ctx context.Context, accountIDs []id.AccountID) (map[id.AccountID]Owner, error)
}

// CapabilityChecker decides whether an account may review documents.
type CapabilityChecker interface {
	IsReviewer(ctx context.Context, accountID id.AccountID) (bool, error)
}

// AuditPublisher persists audit events, failing closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// GateInvalidator is told after an account's verification state changed.
type GateInvalidator interface {
	Invalidate(ctx context.Context, accountID id.AccountID) error
}

package adapters

import (
	"context"

	"trustgate/internal/verification/ports"
	id "trustgate/pkg/domain"
	"trustgate/pkg/requestcontext"
)

// RoleReviewer is the token role that grants review capability.
const RoleReviewer = "reviewer"

// AllowlistChecker grants review capability to a fixed set of accounts.
type AllowlistChecker struct {
	reviewers map[id.AccountID]struct{}
}

func NewAllowlistChecker(reviewers ...id.AccountID) *AllowlistChecker {
	c := &AllowlistChecker{reviewers: make(map[id.AccountID]struct{}, len(reviewers))}
	for _, r := range reviewers {
		c.reviewers[r] = struct{}{}
	}
	return c
}

func (c *AllowlistChecker) IsReviewer(_ context.Context, accountID id.AccountID) (bool, error) {
	_, ok := c.reviewers[accountID]
	return ok, nil
}

// RoleChecker grants review capability when the authenticated caller is
// the account being checked and their token carries the reviewer role.
type RoleChecker struct {
	role string
}

func NewRoleChecker(role string) *RoleChecker {
	if role == "" {
		role = RoleReviewer
	}
	return &RoleChecker{role: role}
}

func (c *RoleChecker) IsReviewer(ctx context.Context, accountID id.AccountID) (bool, error) {
	caller := requestcontext.AccountID(ctx)
	if caller.IsNil() || caller != accountID {
		return false, nil
	}
	return requestcontext.HasRole(ctx, c.role), nil
}

// AnyOf grants capability when any checker does. The first error stops
// evaluation.
type AnyOf []ports.CapabilityChecker

func (a AnyOf) IsReviewer(ctx context.Context, accountID id.AccountID) (bool, error) {
	for _, c := range a {
		ok, err := c.IsReviewer(ctx, accountID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

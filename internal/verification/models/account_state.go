package models

import (
	id "trustgate/pkg/domain"
)

// AccountState is the derived view of one account: for each category, the
// latest Document (or none). It is never stored; stores build it from a
// single consistent read.
type AccountState struct {
	AccountID id.AccountID
	latest    map[Category]*Document
}

// NewAccountState resolves latest-wins over docs. docs may contain several
// records per category and records of unknown categories; both are handled.
func NewAccountState(accountID id.AccountID, docs []*Document) *AccountState {
	latest := make(map[Category]*Document, CategoryCount)
	for _, d := range docs {
		if d == nil || !d.Category.IsValid() || d.OwnerAccountID != accountID {
			continue
		}
		if d.SupersedesOrEqual(latest[d.Category]) {
			latest[d.Category] = d
		}
	}
	return &AccountState{AccountID: accountID, latest: latest}
}

// Latest returns the latest document for c, or nil when none was submitted.
func (s *AccountState) Latest(c Category) *Document {
	if s == nil {
		return nil
	}
	return s.latest[c]
}

// Documents returns a map holding every taxonomy category; missing
// categories map to nil.
func (s *AccountState) Documents() map[Category]*Document {
	out := make(map[Category]*Document, CategoryCount)
	for _, c := range taxonomy {
		out[c] = s.Latest(c).Clone()
	}
	return out
}

// QueueFilter narrows the review queue. Zero value means "everything pending".
type QueueFilter struct {
	Category   *Category
	SearchText string
}

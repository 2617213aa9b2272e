package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"trustgate/internal/verification/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

type pendingKey struct {
	owner    id.AccountID
	category models.Category
}

// InMemoryStore keeps documents in process. A single RWMutex guards every
// index, so the pending check-and-insert and the review compare-and-swap are
// atomic and every read sees one consistent snapshot.
type InMemoryStore struct {
	mu          sync.RWMutex
	seq         int64
	byID        map[id.DocumentID]*models.Document
	byAccount   map[id.AccountID][]*models.Document
	pending     map[pendingKey]id.DocumentID
	generations map[id.AccountID]uint64
	// ordered holds every document in submission order.
	ordered []*models.Document
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:        make(map[id.DocumentID]*models.Document),
		byAccount:   make(map[id.AccountID][]*models.Document),
		pending:     make(map[pendingKey]id.DocumentID),
		generations: make(map[id.AccountID]uint64),
	}
}

// Create inserts a PENDING document. Returns sentinel.ErrConflict when the
// owner already has a pending document in the same category.
func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	key := pendingKey{owner: doc.OwnerAccountID, category: doc.Category}
	if doc.IsPending() {
		if _, exists := s.pending[key]; exists {
			return sentinel.ErrConflict
		}
	}

	s.seq++
	doc.Seq = s.seq
	stored := doc.Clone()
	s.byID[stored.ID] = stored
	s.byAccount[stored.OwnerAccountID] = append(s.byAccount[stored.OwnerAccountID], stored)
	s.ordered = append(s.ordered, stored)
	if stored.IsPending() {
		s.pending[key] = stored.ID
	}
	s.generations[stored.OwnerAccountID]++
	return nil
}

// Generation returns the account's write counter. Every Create and every
// successful CompleteReview advances it under the same lock as the write.
func (s *InMemoryStore) Generation(_ context.Context, accountID id.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[accountID], nil
}

// FindByID returns a copy of the document or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, documentID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

// LatestForAccount resolves latest-wins under the read lock.
func (s *InMemoryStore) LatestForAccount(_ context.Context, accountID id.AccountID) (*models.AccountState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.byAccount[accountID]
	copies := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		copies = append(copies, d.Clone())
	}
	return models.NewAccountState(accountID, copies), nil
}

// ListPending returns pending documents in FIFO order (oldest submission first).
func (s *InMemoryStore) ListPending(_ context.Context, category *models.Category) ([]*models.Document, error) {
	s.mu.RLock()
	out := make([]*models.Document, 0, len(s.pending))
	for _, d := range s.ordered {
		if !d.IsPending() {
			continue
		}
		if category != nil && d.Category != *category {
			continue
		}
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *models.Document) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return out, nil
}

// ListByAccount returns every document the account submitted, newest first.
func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID, category *models.Category) ([]*models.Document, error) {
	s.mu.RLock()
	docs := s.byAccount[accountID]
	out := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		if category != nil && d.Category != *category {
			continue
		}
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *models.Document) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Seq, a.Seq)
	})
	return out, nil
}

// CompleteReview moves a PENDING document to the decision's status.
// Exactly one caller wins per document; the rest get sentinel.ErrInvalidState.
func (s *InMemoryStore) CompleteReview(_ context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string, at time.Time) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byID[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := doc.CanReview(); err != nil {
		return nil, sentinel.ErrInvalidState
	}
	doc.ApplyReview(decision, reviewerID, note, at)
	delete(s.pending, pendingKey{owner: doc.OwnerAccountID, category: doc.Category})
	s.generations[doc.OwnerAccountID]++
	return doc.Clone(), nil
}

package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
)

// countingSnapshotter counts store reads so tests can tell hits from fills.
type countingSnapshotter struct {
	inner  Snapshotter
	reads  atomic.Int32
	err    error
	genErr error
}

func (c *countingSnapshotter) Generation(ctx context.Context, accountID id.AccountID) (uint64, error) {
	if c.genErr != nil {
		return 0, c.genErr
	}
	return c.inner.Generation(ctx, accountID)
}

func (c *countingSnapshotter) LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error) {
	c.reads.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.LatestForAccount(ctx, accountID)
}

var errCacheDown = errors.New("cache down")

type failingCache struct{}

func (failingCache) Get(context.Context, id.AccountID) (Entry, bool, error) {
	return Entry{}, false, errCacheDown
}

func (failingCache) Set(context.Context, id.AccountID, Entry) error { return errCacheDown }

func (failingCache) Delete(context.Context, id.AccountID) error { return errCacheDown }

// stickyCache stores entries but never deletes them, like a remote cache
// that drops every invalidation.
type stickyCache struct{ *MemoryCache }

func (stickyCache) Delete(context.Context, id.AccountID) error { return errCacheDown }

type GateSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	snapshots *countingSnapshotter
	metrics   *metrics.Metrics
	service   *Service
	ctx       context.Context
	now       time.Time
	reviewer  id.AccountID
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.snapshots = &countingSnapshotter{inner: s.store}
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = New(s.snapshots, WithMetrics(s.metrics), WithCache(NewMemoryCache(time.Minute)))
	s.ctx = context.Background()
	s.now = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s.reviewer = id.NewAccountID()
}

func (s *GateSuite) verify(owner id.AccountID, category models.Category) {
	doc, err := models.NewDocument(id.NewDocumentID(), owner, category, "ref", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, doc))
	_, err = s.store.CompleteReview(s.ctx, doc.ID, models.DecisionVerified, s.reviewer, "", s.now)
	s.Require().NoError(err)
}

func (s *GateSuite) TestEmptyToFullyVerified() {
	owner := id.NewAccountID()

	g, err := s.service.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(trust.Gate{Score: 0, VerifiedCount: 0, FullyVerified: false, HighTrust: false}, g)

	for _, c := range models.Categories() {
		s.verify(owner, c)
		s.Require().NoError(s.service.Invalidate(s.ctx, owner))
	}

	g, err = s.service.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(trust.Gate{Score: 100, VerifiedCount: 7, FullyVerified: true, HighTrust: true}, g)
}

func (s *GateSuite) TestCacheHitAndInvalidation() {
	owner := id.NewAccountID()
	s.verify(owner, models.CategoryAddressProof)

	first, err := s.service.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	second, err := s.service.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.EqualValues(1, s.snapshots.reads.Load(), "second read is served from cache")
	s.InDelta(1, testutil.ToFloat64(s.metrics.GateCache.WithLabelValues(metrics.CacheHit)), 0)

	s.verify(owner, models.CategoryTaxCompliance)
	s.Require().NoError(s.service.Invalidate(s.ctx, owner))

	third, err := s.service.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(2, third.VerifiedCount, "no stale read after invalidation")
	s.EqualValues(2, s.snapshots.reads.Load())
}

func (s *GateSuite) TestEntryFromOlderGenerationIsNotServed() {
	owner := id.NewAccountID()
	cache := NewMemoryCache(time.Minute)
	svc := New(s.snapshots, WithCache(cache), WithMetrics(s.metrics))

	// A fill that read generation 0 and stored its result after a write
	// committed.
	s.verify(owner, models.CategoryLegalMatters)
	s.Require().NoError(cache.Set(s.ctx, owner, Entry{Gate: trust.FromCount(0), Generation: 0}))

	g, err := svc.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(1, g.VerifiedCount)
	s.InDelta(1, testutil.ToFloat64(s.metrics.GateCache.WithLabelValues(metrics.CacheStale)), 0)
}

func (s *GateSuite) TestLostInvalidationNeverServesStale() {
	owner := id.NewAccountID()
	svc := New(s.snapshots, WithCache(stickyCache{NewMemoryCache(time.Minute)}), WithMetrics(s.metrics))

	before, err := svc.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(0, before.VerifiedCount)

	s.verify(owner, models.CategoryAgentVerify)
	s.Error(svc.Invalidate(s.ctx, owner))

	after, err := svc.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(1, after.VerifiedCount)
	s.InDelta(1, testutil.ToFloat64(s.metrics.GateCache.WithLabelValues(metrics.CacheStale)), 0)
}

func (s *GateSuite) TestCacheOutageFallsBackToStore() {
	owner := id.NewAccountID()
	s.verify(owner, models.CategoryBusinessLicense)
	svc := New(s.snapshots, WithCache(failingCache{}), WithMetrics(s.metrics))

	g, err := svc.GateFor(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(1, g.VerifiedCount)
	s.InDelta(1, testutil.ToFloat64(s.metrics.GateCache.WithLabelValues(metrics.CacheError)), 0)
}

func (s *GateSuite) TestStoreFailure() {
	s.Run("snapshot", func() {
		s.snapshots.err = errors.New("connection refused")
		defer func() { s.snapshots.err = nil }()
		_, err := s.service.GateFor(s.ctx, id.NewAccountID())
		s.True(dErrors.HasCode(err, dErrors.CodePersistenceFailure))
	})

	s.Run("generation", func() {
		s.snapshots.genErr = errors.New("connection refused")
		defer func() { s.snapshots.genErr = nil }()
		_, err := s.service.GateFor(s.ctx, id.NewAccountID())
		s.True(dErrors.HasCode(err, dErrors.CodePersistenceFailure))
	})
}

func (s *GateSuite) TestNilAccount() {
	_, err := s.service.GateFor(s.ctx, id.AccountID{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *GateSuite) TestGatesFor() {
	a := id.NewAccountID()
	b := id.NewAccountID()
	for _, c := range models.Categories()[:5] {
		s.verify(a, c)
	}

	s.Run("evaluates each distinct account", func() {
		gates, err := s.service.GatesFor(s.ctx, []id.AccountID{a, b, a})
		s.Require().NoError(err)
		s.Require().Len(gates, 2)
		s.Equal(trust.Gate{Score: 71, VerifiedCount: 5, FullyVerified: false, HighTrust: true}, gates[a])
		s.Equal(trust.Gate{}, gates[b])
	})

	s.Run("rejects empty batch", func() {
		_, err := s.service.GatesFor(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects oversized batch", func() {
		ids := make([]id.AccountID, MaxBatchSize+1)
		for i := range ids {
			ids[i] = id.NewAccountID()
		}
		_, err := s.service.GatesFor(s.ctx, ids)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("one failure fails the batch", func() {
		_, err := s.service.GatesFor(s.ctx, []id.AccountID{a, {}})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

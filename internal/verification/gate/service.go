// Package gate is the Visibility Gate: the read interface ranking, badge and
// marketing consumers use. It exposes only the trust.Gate tuple.
package gate

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
)

const (
	// MaxBatchSize bounds GatesFor.
	MaxBatchSize = 100

	batchConcurrency = 8
)

// Snapshotter reads one account's latest documents in a single consistent
// read, and the account's generation: a counter the store advances in the
// same transaction as every document write.
type Snapshotter interface {
	LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error)
	Generation(ctx context.Context, accountID id.AccountID) (uint64, error)
}

// Service computes gates through the trust calculator and caches them.
//
// Freshness: GateFor reads the store generation before the snapshot and
// caches the result under that generation. A committed write has already
// advanced the generation, so an entry computed before it is never served
// again, whether or not Invalidate reached the cache.
type Service struct {
	snapshots Snapshotter
	cache     Cache
	group     singleflight.Group
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache replaces the default in-process cache.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

const defaultTTL = 5 * time.Minute

func New(snapshots Snapshotter, opts ...Option) *Service {
	s := &Service{
		snapshots: snapshots,
		cache:     NewMemoryCache(defaultTTL),
		logger:    slog.Default(),
		tracer:    otel.Tracer("trustgate/verification/gate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GateFor returns {score, verifiedCount, fullyVerified, highTrust} for one account.
func (s *Service) GateFor(ctx context.Context, accountID id.AccountID) (trust.Gate, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation("gate_for", start)
	ctx, span := s.tracer.Start(ctx, "gate.GateFor", trace.WithAttributes(
		attribute.String("account_id", accountID.String()),
	))
	defer span.End()

	if accountID.IsNil() {
		return trust.Gate{}, dErrors.New(dErrors.CodeInvalidInput, "account_id is required")
	}

	gen, err := s.snapshots.Generation(ctx, accountID)
	if err != nil {
		return trust.Gate{}, s.fail(span, storeFailure(err))
	}

	entry, ok, err := s.cache.Get(ctx, accountID)
	switch {
	case err != nil:
		s.metrics.IncGateCache(metrics.CacheError)
		s.logger.WarnContext(ctx, "gate cache read failed", "account_id", accountID, "error", err)
	case ok && entry.Generation == gen:
		s.metrics.IncGateCache(metrics.CacheHit)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return entry.Gate, nil
	case ok:
		s.metrics.IncGateCache(metrics.CacheStale)
	default:
		s.metrics.IncGateCache(metrics.CacheMiss)
	}

	g, err := s.fill(ctx, accountID, gen)
	if err != nil {
		return trust.Gate{}, s.fail(span, err)
	}
	return g, nil
}

// GatesFor evaluates several accounts in parallel through the same cache.
// Duplicate ids are evaluated once.
func (s *Service) GatesFor(ctx context.Context, accountIDs []id.AccountID) (map[id.AccountID]trust.Gate, error) {
	if len(accountIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one account_id is required")
	}
	if len(accountIDs) > MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, "at most "+strconv.Itoa(MaxBatchSize)+" account_ids per request")
	}

	out := make(map[id.AccountID]trust.Gate, len(accountIDs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	seen := make(map[id.AccountID]struct{}, len(accountIDs))
	for _, accountID := range accountIDs {
		if _, dup := seen[accountID]; dup {
			continue
		}
		seen[accountID] = struct{}{}
		g.Go(func() error {
			gate, err := s.GateFor(gctx, accountID)
			if err != nil {
				return err
			}
			mu.Lock()
			out[accountID] = gate
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops the account's cached gate after a committed write. The
// entry is already superseded by the store generation; dropping it only
// frees the slot early.
func (s *Service) Invalidate(ctx context.Context, accountID id.AccountID) error {
	if err := s.cache.Delete(ctx, accountID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate gate")
	}
	return nil
}

// fill computes once per (account, generation) and caches the result.
func (s *Service) fill(ctx context.Context, accountID id.AccountID, gen uint64) (trust.Gate, error) {
	key := accountID.String() + ":" + strconv.FormatUint(gen, 10)
	ch := s.group.DoChan(key, func() (any, error) {
		fillCtx := context.WithoutCancel(ctx)
		g, err := s.compute(fillCtx, accountID)
		if err != nil {
			return trust.Gate{}, err
		}
		if err := s.cache.Set(fillCtx, accountID, Entry{Gate: g, Generation: gen}); err != nil {
			s.logger.WarnContext(fillCtx, "gate cache write failed", "account_id", accountID, "error", err)
		}
		return g, nil
	})
	select {
	case <-ctx.Done():
		return trust.Gate{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "gate evaluation cancelled")
	case res := <-ch:
		if res.Err != nil {
			return trust.Gate{}, res.Err
		}
		return res.Val.(trust.Gate), nil
	}
}

func (s *Service) compute(ctx context.Context, accountID id.AccountID) (trust.Gate, error) {
	state, err := s.snapshots.LatestForAccount(ctx, accountID)
	if err != nil {
		return trust.Gate{}, storeFailure(err)
	}
	return trust.Evaluate(state), nil
}

func storeFailure(err error) error {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to load account state")
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

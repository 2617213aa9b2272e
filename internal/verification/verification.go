// Package verification assembles the Trust & Compliance Verification Engine:
// document registry, review workflow and visibility gate over one store.
package verification

import (
	"context"
	"log/slog"
	"time"

	"trustgate/internal/verification/gate"
	"trustgate/internal/verification/handler"
	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/registry"
	"trustgate/internal/verification/review"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/tx"
)

// Store is the persistence shared by every component. Generation must
// advance in the same transaction as every Create and CompleteReview.
type Store interface {
	registry.Store
	Generation(ctx context.Context, accountID id.AccountID) (uint64, error)
	CompleteReview(ctx context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string, at time.Time) (*models.Document, error)
}

// Deps are the collaborators the engine is built from. Nil optional fields
// fall back to in-process defaults.
type Deps struct {
	Store        Store
	Directory    ports.OwnerDirectory
	Capabilities ports.CapabilityChecker
	Audit        ports.AuditPublisher
	TxRunner     tx.Runner
	Cache        gate.Cache
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Module exposes the wired services and their HTTP handler.
type Module struct {
	Registry *registry.Service
	Review   *review.Service
	Gate     *gate.Service
	Handler  *handler.Handler
}

func New(deps Deps) *Module {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := deps.TxRunner
	if runner == nil {
		runner = tx.NoopRunner{}
	}

	gateOpts := []gate.Option{gate.WithLogger(logger), gate.WithMetrics(deps.Metrics)}
	if deps.Cache != nil {
		gateOpts = append(gateOpts, gate.WithCache(deps.Cache))
	}
	gates := gate.New(deps.Store, gateOpts...)

	registryOpts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithMetrics(deps.Metrics),
		registry.WithTxRunner(runner),
		registry.WithInvalidator(gates),
	}
	reviewOpts := []review.Option{
		review.WithLogger(logger),
		review.WithMetrics(deps.Metrics),
		review.WithTxRunner(runner),
		review.WithInvalidator(gates),
	}
	if deps.Audit != nil {
		registryOpts = append(registryOpts, registry.WithAuditPublisher(deps.Audit))
		reviewOpts = append(reviewOpts, review.WithAuditPublisher(deps.Audit))
	}

	reg := registry.New(deps.Store, deps.Directory, registryOpts...)
	rev := review.New(deps.Store, reg, deps.Capabilities, reviewOpts...)

	return &Module{
		Registry: reg,
		Review:   rev,
		Gate:     gates,
		Handler:  handler.New(reg, rev, gates, deps.Capabilities, logger),
	}
}

// Package review is the Review Workflow: the only writer of terminal
// document status.
//
// State machine: PENDING → VERIFIED | REJECTED. Both targets are terminal;
// the only way back to PENDING is a new submission through the registry.
package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/registry"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	audit "trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/platform/tx"
	"trustgate/pkg/requestcontext"
)

// Store is the compare-and-swap write the workflow needs.
type Store interface {
	CompleteReview(ctx context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string, at time.Time) (*models.Document, error)
}

// Queue lists pending documents for reviewers.
type Queue interface {
	ReviewQueue(ctx context.Context, filter models.QueueFilter) ([]registry.QueueItem, error)
}

// Service enforces the reviewer boundary and applies decisions.
type Service struct {
	store          Store
	queue          Queue
	capabilities   ports.CapabilityChecker
	tx             tx.Runner
	auditPublisher ports.AuditPublisher
	invalidator    ports.GateInvalidator
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithInvalidator(inv ports.GateInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// New constructs a Service. capabilities is required: without it nobody
// may review.
func New(store Store, queue Queue, capabilities ports.CapabilityChecker, opts ...Option) *Service {
	s := &Service{
		store:        store,
		queue:        queue,
		capabilities: capabilities,
		tx:           tx.NoopRunner{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("trustgate/verification/review"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Review applies decision to a PENDING document.
//
// The capability check runs before the document is looked up, so callers
// without review capability cannot discover which document ids exist. Of any
// number of concurrent reviews on one document exactly one succeeds; the
// rest get AlreadyReviewed and the document is left as the winner wrote it.
// The owner's cached gate is invalidated only after the write commits.
func (s *Service) Review(ctx context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string) (*models.Document, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation("review", start)
	ctx, span := s.tracer.Start(ctx, "review.Review", trace.WithAttributes(
		attribute.String("document_id", documentID.String()),
		attribute.String("decision", string(decision)),
	))
	defer span.End()

	if err := s.requireReviewer(ctx, reviewerID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			s.emitBestEffort(ctx, audit.Event{
				Subject: documentID.String(),
				Action:  string(audit.EventVerificationReviewDenied),
				ActorID: reviewerID.String(),
			})
		}
		return nil, s.fail(span, err)
	}
	if !decision.IsValid() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "decision must be VERIFIED or REJECTED"))
	}
	note, err := models.NormalizeReviewNote(note)
	if err != nil {
		return nil, s.fail(span, err)
	}

	var reviewed *models.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := s.store.CompleteReview(txCtx, documentID, decision, reviewerID, note, requestcontext.Now(txCtx))
		if err != nil {
			return translateStoreError(err)
		}
		reviewed = doc
		return s.emit(txCtx, audit.Event{
			AccountID: doc.OwnerAccountID,
			Subject:   doc.ID.String(),
			Action:    string(audit.EventVerificationReviewed),
			Decision:  string(doc.Status),
			Reason:    string(doc.Category),
			ActorID:   reviewerID.String(),
		})
	})
	if err != nil {
		err = translateTxError(err)
		if dErrors.HasCode(err, dErrors.CodeAlreadyReviewed) {
			s.recordConflict(ctx, documentID, reviewerID, decision)
		}
		return nil, s.fail(span, err)
	}

	s.invalidate(ctx, reviewed.OwnerAccountID)
	s.metrics.IncReview(string(reviewed.Status))
	s.logAudit(ctx, string(audit.EventVerificationReviewed),
		"account_id", reviewed.OwnerAccountID,
		"document_id", reviewed.ID,
		"category", reviewed.Category,
		"decision", reviewed.Status,
		"reviewer_id", reviewerID,
	)
	return reviewed, nil
}

// Queue returns the FIFO review queue for a reviewer.
func (s *Service) Queue(ctx context.Context, reviewerID id.AccountID, filter models.QueueFilter) ([]registry.QueueItem, error) {
	if err := s.requireReviewer(ctx, reviewerID); err != nil {
		return nil, err
	}
	return s.queue.ReviewQueue(ctx, filter)
}

func (s *Service) requireReviewer(ctx context.Context, reviewerID id.AccountID) error {
	if reviewerID.IsNil() || s.capabilities == nil {
		return dErrors.New(dErrors.CodeForbidden, "review capability required")
	}
	ok, err := s.capabilities.IsReviewer(ctx, reviewerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check review capability")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "review capability required")
	}
	return nil
}

// translateTxError keeps errors the callback already coded and translates
// the rest, which come from beginning or committing the transaction.
func translateTxError(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return translateStoreError(err)
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeAlreadyReviewed, "document already reviewed")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "review timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to store review")
	}
}

func (s *Service) recordConflict(ctx context.Context, documentID id.DocumentID, reviewerID id.AccountID, decision models.Decision) {
	s.metrics.IncReviewConflict()
	s.logger.InfoContext(ctx, "review lost race; document already reviewed",
		"document_id", documentID,
		"reviewer_id", reviewerID,
		"decision", decision,
	)
	s.emitBestEffort(ctx, audit.Event{
		Subject:  documentID.String(),
		Action:   string(audit.EventVerificationReviewConflict),
		Decision: string(decision),
		ActorID:  reviewerID.String(),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to record audit event")
	}
	return nil
}

// emitBestEffort records events that describe a refused operation. Their
// loss must not change the outcome the caller already has.
func (s *Service) emitBestEffort(ctx context.Context, event audit.Event) {
	if err := s.emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event dropped", "action", event.Action, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, accountID id.AccountID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, accountID); err != nil {
		s.metrics.IncInvalidationFailure()
		s.logger.WarnContext(ctx, "gate cache delete failed; entry is superseded by the store generation",
			"account_id", accountID,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

// Package registry is the Document Registry: it accepts submissions and
// answers latest-per-category, review queue and history reads.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	audit "trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/platform/tx"
	"trustgate/pkg/requestcontext"
)

// Store is the persistence the registry needs.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error)
	ListPending(ctx context.Context, category *models.Category) ([]*models.Document, error)
	ListByAccount(ctx context.Context, accountID id.AccountID, category *models.Category) ([]*models.Document, error)
}

// QueueItem is a pending document with its owner's display profile.
// Owner is nil when the directory has no profile for the account.
type QueueItem struct {
	Document *models.Document
	Owner    *ports.Owner
}

// Service orchestrates document submission and registry reads.
type Service struct {
	store          Store
	directory      ports.OwnerDirectory
	tx             tx.Runner
	auditPublisher ports.AuditPublisher
	invalidator    ports.GateInvalidator
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func() id.DocumentID
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

// WithTxRunner sets the transaction boundary shared by the document write and
// its audit event.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// WithInvalidator sets who is told after a submission changes an account's
// latest documents.
func WithInvalidator(inv ports.GateInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func WithIDGenerator(fn func() id.DocumentID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(store Store, directory ports.OwnerDirectory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		tx:        tx.NoopRunner{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("trustgate/verification/registry"),
		newID:     id.NewDocumentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a PENDING document for (owner, category).
//
// A PENDING document already present for the pair yields DuplicateSubmission
// and nothing is written. A rejected or stale category may be resubmitted;
// the new document becomes the latest and the old one stays in history.
func (s *Service) Submit(ctx context.Context, owner id.AccountID, category models.Category, evidenceRef string) (*models.Document, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation("submit", start)
	ctx, span := s.tracer.Start(ctx, "registry.Submit", trace.WithAttributes(
		attribute.String("account_id", owner.String()),
		attribute.String("category", string(category)),
	))
	defer span.End()

	doc, err := models.NewDocument(s.newID(), owner, category, evidenceRef, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, s.fail(span, err)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, doc); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateSubmission, "a pending submission already exists for this category")
			}
			return persistenceFailure(err, "failed to store submission")
		}
		return s.emit(txCtx, audit.Event{
			AccountID: doc.OwnerAccountID,
			Subject:   doc.ID.String(),
			Action:    string(audit.EventVerificationSubmitted),
			Decision:  string(doc.Status),
			Reason:    string(doc.Category),
		})
	})
	if err != nil {
		// Begin and commit faults surface here without a domain code.
		return nil, s.fail(span, persistenceFailure(err, "failed to store submission"))
	}

	// A pending resubmission can supersede a VERIFIED latest record.
	s.invalidate(ctx, doc.OwnerAccountID)
	s.metrics.IncDocumentSubmitted(string(doc.Category))
	s.logAudit(ctx, string(audit.EventVerificationSubmitted),
		"account_id", doc.OwnerAccountID,
		"document_id", doc.ID,
		"category", doc.Category,
	)
	return doc, nil
}

// LatestForAccount returns the latest document per category from one
// consistent read. Accounts without documents get an empty state.
func (s *Service) LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation("latest_for_account", start)
	ctx, span := s.tracer.Start(ctx, "registry.LatestForAccount", trace.WithAttributes(
		attribute.String("account_id", accountID.String()),
	))
	defer span.End()

	state, err := s.store.LatestForAccount(ctx, accountID)
	if err != nil {
		return nil, s.fail(span, persistenceFailure(err, "failed to load account state"))
	}
	return state, nil
}

// ReviewQueue lists PENDING documents oldest first. SearchText matches the
// owner's display name or email, case-insensitively; documents whose owner
// has no profile never match a non-empty search.
func (s *Service) ReviewQueue(ctx context.Context, filter models.QueueFilter) ([]QueueItem, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation("review_queue", start)
	ctx, span := s.tracer.Start(ctx, "registry.ReviewQueue")
	defer span.End()

	docs, err := s.store.ListPending(ctx, filter.Category)
	if err != nil {
		return nil, s.fail(span, persistenceFailure(err, "failed to load review queue"))
	}
	if len(docs) == 0 {
		return []QueueItem{}, nil
	}

	owners, err := s.lookupOwners(ctx, docs)
	if err != nil {
		return nil, s.fail(span, err)
	}

	needle := strings.ToLower(strings.TrimSpace(filter.SearchText))
	items := make([]QueueItem, 0, len(docs))
	for _, doc := range docs {
		var owner *ports.Owner
		if o, ok := owners[doc.OwnerAccountID]; ok {
			owner = &o
		}
		if needle != "" && !ownerMatches(owner, needle) {
			continue
		}
		items = append(items, QueueItem{Document: doc, Owner: owner})
	}
	span.SetAttributes(attribute.Int("queue.size", len(items)))
	return items, nil
}

// History returns every document the account submitted, newest first,
// including superseded ones.
func (s *Service) History(ctx context.Context, accountID id.AccountID, category *models.Category) ([]*models.Document, error) {
	if category != nil && !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidCategory, "unknown verification category: "+string(*category))
	}
	docs, err := s.store.ListByAccount(ctx, accountID, category)
	if err != nil {
		return nil, persistenceFailure(err, "failed to load history")
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return docs, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, persistenceFailure(err, "failed to load document")
	}
	return doc, nil
}

func (s *Service) lookupOwners(ctx context.Context, docs []*models.Document) (map[id.AccountID]ports.Owner, error) {
	if s.directory == nil {
		return map[id.AccountID]ports.Owner{}, nil
	}
	seen := make(map[id.AccountID]struct{}, len(docs))
	accountIDs := make([]id.AccountID, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.OwnerAccountID]; ok {
			continue
		}
		seen[d.OwnerAccountID] = struct{}{}
		accountIDs = append(accountIDs, d.OwnerAccountID)
	}
	owners, err := s.directory.Lookup(ctx, accountIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up document owners")
	}
	return owners, nil
}

func ownerMatches(owner *ports.Owner, needle string) bool {
	if owner == nil {
		return false
	}
	return strings.Contains(strings.ToLower(owner.DisplayName), needle) ||
		strings.Contains(strings.ToLower(owner.Email), needle)
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

// persistenceFailure keeps domain errors intact and wraps store faults.
func persistenceFailure(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodePersistenceFailure, msg)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/registry"
	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/platform/httputil"
	"trustgate/pkg/requestcontext"
)

// Registry is the document registry surface used by the handlers.
type Registry interface {
	Submit(ctx context.Context, owner id.AccountID, category models.Category, evidenceRef string) (*models.Document, error)
	Get(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error)
	History(ctx context.Context, accountID id.AccountID, category *models.Category) ([]*models.Document, error)
}

// Reviewer is the review workflow surface used by the handlers.
type Reviewer interface {
	Review(ctx context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string) (*models.Document, error)
	Queue(ctx context.Context, reviewerID id.AccountID, filter models.QueueFilter) ([]registry.QueueItem, error)
}

// Gate is the visibility gate surface used by the handlers.
type Gate interface {
	GateFor(ctx context.Context, accountID id.AccountID) (trust.Gate, error)
	GatesFor(ctx context.Context, accountIDs []id.AccountID) (map[id.AccountID]trust.Gate, error)
}

// Handler wires verification endpoints to the registry, review and gate services.
type Handler struct {
	registry     Registry
	reviewer     Reviewer
	gate         Gate
	capabilities ports.CapabilityChecker
	logger       *slog.Logger
}

// New constructs a verification handler. capabilities lets reviewers read
// documents and history of accounts other than their own.
func New(registry Registry, reviewer Reviewer, gate Gate, capabilities ports.CapabilityChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:     registry,
		reviewer:     reviewer,
		gate:         gate,
		capabilities: capabilities,
		logger:       logger,
	}
}

// Register mounts verification and review endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verification", func(r chi.Router) {
		r.Post("/documents", h.HandleSubmit)
		r.Get("/documents/{documentID}", h.HandleGetDocument)
		r.Get("/accounts/{accountID}/state", h.HandleAccountState)
		r.Get("/accounts/{accountID}/history", h.HandleHistory)
		r.Get("/accounts/{accountID}/gate", h.HandleGate)
		r.Post("/gates", h.HandleBatchGate)
	})
	r.Route("/review", func(r chi.Router) {
		r.Get("/queue", h.HandleQueue)
		r.Post("/documents/{documentID}", h.HandleReview)
	})
}

// HandleSubmit handles POST /verification/documents for the caller's account.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.registry.Submit(ctx, caller, req.ParsedCategory(), req.EvidenceRef)
	if err != nil {
		h.logFailure(ctx, "submission failed", err, "account_id", caller, "category", req.ParsedCategory())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleGetDocument handles GET /verification/documents/{documentID}.
// Callers who may not view the document get 404, not 403.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.registry.Get(ctx, documentID)
	if err != nil {
		h.logFailure(ctx, "document lookup failed", err, "document_id", documentID)
		httputil.WriteError(w, err)
		return
	}
	allowed, err := h.canView(ctx, caller, doc.OwnerAccountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "document not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleAccountState handles GET /verification/accounts/{accountID}/state.
func (h *Handler) HandleAccountState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.authorizeAccount(w, r)
	if !ok {
		return
	}
	state, err := h.registry.LatestForAccount(ctx, accountID)
	if err != nil {
		h.logFailure(ctx, "account state read failed", err, "account_id", accountID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccountState(state))
}

// HandleHistory handles GET /verification/accounts/{accountID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.authorizeAccount(w, r)
	if !ok {
		return
	}
	category, err := parseOptionalCategory(r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.registry.History(ctx, accountID, category)
	if err != nil {
		h.logFailure(ctx, "history read failed", err, "account_id", accountID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(docs))
}

// HandleGate handles GET /verification/accounts/{accountID}/gate. The gate
// tuple is public to every authenticated consumer.
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireCaller(w, ctx); !ok {
		return
	}
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	g, err := h.gate.GateFor(ctx, accountID)
	if err != nil {
		h.logFailure(ctx, "gate read failed", err, "account_id", accountID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGate(accountID, g))
}

// HandleBatchGate handles POST /verification/gates.
func (h *Handler) HandleBatchGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := h.requireCaller(w, ctx); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchGateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	gates, err := h.gate.GatesFor(ctx, req.ParsedAccountIDs())
	if err != nil {
		h.logFailure(ctx, "batch gate read failed", err, "count", len(req.AccountIDs))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGates(req.ParsedAccountIDs(), gates))
}

// HandleQueue handles GET /review/queue?category=&q=.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	category, err := parseOptionalCategory(r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter := models.QueueFilter{Category: category, SearchText: strings.TrimSpace(r.URL.Query().Get("q"))}

	items, err := h.reviewer.Queue(ctx, caller, filter)
	if err != nil {
		h.logFailure(ctx, "review queue read failed", err, "reviewer_id", caller)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromQueue(items))
}

// HandleReview handles POST /review/documents/{documentID}.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.reviewer.Review(ctx, documentID, req.ParsedDecision(), caller, req.Note)
	if err != nil {
		h.logFailure(ctx, "review failed", err, "document_id", documentID, "reviewer_id", caller)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document reviewed",
		"request_id", requestID,
		"document_id", doc.ID,
		"decision", doc.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (id.AccountID, bool) {
	caller := requestcontext.AccountID(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountID{}, false
	}
	return caller, true
}

// authorizeAccount parses {accountID} and lets through the owner or a reviewer.
func (h *Handler) authorizeAccount(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return id.AccountID{}, false
	}
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.AccountID{}, false
	}
	allowed, err := h.canView(ctx, caller, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return id.AccountID{}, false
	}
	if !allowed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to view this account"))
		return id.AccountID{}, false
	}
	return accountID, true
}

func (h *Handler) canView(ctx context.Context, caller, owner id.AccountID) (bool, error) {
	if caller == owner {
		return true, nil
	}
	if h.capabilities == nil {
		return false, nil
	}
	ok, err := h.capabilities.IsReviewer(ctx, caller)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check review capability")
	}
	return ok, nil
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodePersistenceFailure, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, args...)
	default:
		h.logger.InfoContext(ctx, msg, args...)
	}
}

func parseOptionalCategory(raw string) (*models.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	c, err := models.ParseCategory(raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

package handler

import (
	"time"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/registry"
	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
)

// DocumentResponse is the wire shape of a Document.
type DocumentResponse struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	OwnerAccountID string     `json:"owner_account_id"`
	EvidenceRef    string     `json:"evidence_ref"`
	Status         string     `json:"status"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID     string     `json:"reviewer_id,omitempty"`
	ReviewNote     string     `json:"review_note,omitempty"`
}

func FromDocument(d *models.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	resp := &DocumentResponse{
		ID:             d.ID.String(),
		Category:       string(d.Category),
		OwnerAccountID: d.OwnerAccountID.String(),
		EvidenceRef:    d.EvidenceRef,
		Status:         string(d.Status),
		SubmittedAt:    d.SubmittedAt,
		ReviewedAt:     d.ReviewedAt,
		ReviewNote:     d.ReviewNote,
	}
	if d.ReviewerID != nil {
		resp.ReviewerID = d.ReviewerID.String()
	}
	return resp
}

// GateResponse is the read-only gate tuple, keyed by account.
type GateResponse struct {
	AccountID string `json:"account_id"`
	trust.Gate
}

func FromGate(accountID id.AccountID, g trust.Gate) GateResponse {
	return GateResponse{AccountID: accountID.String(), Gate: g}
}

// AccountStateResponse lists the latest document for every category, with
// null for categories never submitted, alongside the computed gate.
type AccountStateResponse struct {
	AccountID string                       `json:"account_id"`
	Documents map[string]*DocumentResponse `json:"documents"`
	trust.Gate
}

func FromAccountState(state *models.AccountState) AccountStateResponse {
	docs := state.Documents()
	out := make(map[string]*DocumentResponse, len(docs))
	for c, d := range docs {
		out[string(c)] = FromDocument(d)
	}
	return AccountStateResponse{
		AccountID: state.AccountID.String(),
		Documents: out,
		Gate:      trust.Evaluate(state),
	}
}

type HistoryResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

func FromHistory(docs []*models.Document) HistoryResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return HistoryResponse{Documents: out}
}

type QueueItemResponse struct {
	Document *DocumentResponse `json:"document"`
	Owner    *ports.Owner      `json:"owner,omitempty"`
}

type QueueResponse struct {
	Items []QueueItemResponse `json:"items"`
}

func FromQueue(items []registry.QueueItem) QueueResponse {
	out := make([]QueueItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, QueueItemResponse{Document: FromDocument(item.Document), Owner: item.Owner})
	}
	return QueueResponse{Items: out}
}

type BatchGateResponse struct {
	Gates []GateResponse `json:"gates"`
}

// FromGates keeps the request order; duplicates in the request collapse.
func FromGates(order []id.AccountID, gates map[id.AccountID]trust.Gate) BatchGateResponse {
	out := make([]GateResponse, 0, len(gates))
	seen := make(map[id.AccountID]struct{}, len(order))
	for _, accountID := range order {
		if _, dup := seen[accountID]; dup {
			continue
		}
		seen[accountID] = struct{}{}
		if g, ok := gates[accountID]; ok {
			out = append(out, FromGate(accountID, g))
		}
	}
	return BatchGateResponse{Gates: out}
}

package handler

import (
	"strconv"
	"strings"

	"trustgate/internal/verification/gate"
	"trustgate/internal/verification/models"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
)

// SubmitRequest is the body of POST /verification/documents.
type SubmitRequest struct {
	Category    string `json:"category"`
	EvidenceRef string `json:"evidence_ref"`

	category models.Category
}

func (r *SubmitRequest) Validate() error {
	r.EvidenceRef = strings.TrimSpace(r.EvidenceRef)
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	if r.EvidenceRef == "" {
		return dErrors.New(dErrors.CodeValidation, "evidence_ref is required")
	}
	r.category = category
	return nil
}

func (r *SubmitRequest) ParsedCategory() models.Category { return r.category }

// ReviewRequest is the body of POST /review/documents/{documentID}.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note,omitempty"`

	decision models.Decision
}

func (r *ReviewRequest) Validate() error {
	decision, err := models.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	note, err := models.NormalizeReviewNote(r.Note)
	if err != nil {
		return err
	}
	r.decision = decision
	r.Note = note
	return nil
}

func (r *ReviewRequest) ParsedDecision() models.Decision { return r.decision }

// BatchGateRequest is the body of POST /verification/gates.
type BatchGateRequest struct {
	AccountIDs []string `json:"account_ids"`

	accountIDs []id.AccountID
}

func (r *BatchGateRequest) Validate() error {
	if len(r.AccountIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "account_ids is required")
	}
	if len(r.AccountIDs) > gate.MaxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "at most "+strconv.Itoa(gate.MaxBatchSize)+" account_ids per request")
	}
	parsed := make([]id.AccountID, 0, len(r.AccountIDs))
	for _, raw := range r.AccountIDs {
		accountID, err := id.ParseAccountID(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, accountID)
	}
	r.accountIDs = parsed
	return nil
}

func (r *BatchGateRequest) ParsedAccountIDs() []id.AccountID { return r.accountIDs }

// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so an AccountID can never be
// passed where a DocumentID is expected. Parse at trust boundaries; the
// zero value is never a valid identifier.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "trustgate/pkg/domain-errors"
)

// AccountID identifies a marketplace account (document owner or reviewer).
type AccountID uuid.UUID

// DocumentID identifies one verification submission.
type DocumentID uuid.UUID

// NewAccountID generates a random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewDocumentID generates a random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// ParseAccountID validates external input as an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account_id")
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseDocumentID validates external input as a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

func (id AccountID) String() string  { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

const maxIDLength = 64

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

package audit

import (
	"context"
	"time"

	id "trustgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers decisions that change what buyers are shown.
	// These are written in the same transaction as the state change.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers access and contention signals worth alerting on.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// AccountID is the account whose verification state the event concerns.
	AccountID id.AccountID
	// Subject is the document the action was taken on.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// ActorID is set when someone other than AccountID acted (a reviewer).
	ActorID  string
	ClientIP string
	Device   string
}

type AuditEvent string

const (
	EventVerificationSubmitted      AuditEvent = "verification_submitted"
	EventVerificationReviewed       AuditEvent = "verification_reviewed"
	EventVerificationReviewConflict AuditEvent = "verification_review_conflict"
	EventVerificationReviewDenied   AuditEvent = "verification_review_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationSubmitted:      CategoryCompliance,
	EventVerificationReviewed:       CategoryCompliance,
	EventVerificationReviewDenied:   CategorySecurity,
	EventVerificationReviewConflict: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations reached with a transaction in
// context must write inside that transaction.
type Store interface {
	Append(ctx context.Context, event Event) error
}

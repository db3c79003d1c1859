package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundStatus tracks a refund record through the request/approval pipeline
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusApproved  RefundStatus = "approved"
	RefundStatusRejected  RefundStatus = "rejected"
	RefundStatusCompleted RefundStatus = "completed"
)

// RefundDecision is the staff decision on a pending refund
type RefundDecision string

const (
	RefundDecisionApprove RefundDecision = "approve"
	RefundDecisionReject  RefundDecision = "reject"
)

// RefundRecord is the one-to-one refund state of a ticket.
// At most one non-superseded record exists per ticket.
type RefundRecord struct {
	ID          uuid.UUID
	TicketID    uuid.UUID
	Amount      decimal.Decimal
	Reason      string
	Status      RefundStatus
	RequestedBy uuid.UUID
	ProcessorID *uuid.UUID
	Notes       string
	RequestedAt time.Time
	ProcessedAt *time.Time
}

// CanBeProcessed reports whether a staff decision may still be applied
func (r *RefundRecord) CanBeProcessed() bool {
	return r.Status == RefundStatusPending
}

// IsTerminal reports whether the record is in a final state
func (r *RefundRecord) IsTerminal() bool {
	return r.Status == RefundStatusCompleted || r.Status == RefundStatusRejected
}

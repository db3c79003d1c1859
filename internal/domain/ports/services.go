package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
)

// PriceQuote is the outcome of one price resolution
type PriceQuote struct {
	UnitPrice     decimal.Decimal
	AppliedRuleID *uuid.UUID // nil when the base price applied
}

// PriceResolver picks the effective unit price for a ticket type, visit date
// and quantity. Read-only and side-effect-free.
type PriceResolver interface {
	Resolve(ctx context.Context, ticketTypeID uuid.UUID, visitDate time.Time, quantity int32) (PriceQuote, error)
}

// CartLine is one priced line handed to promotion evaluation
type CartLine struct {
	TicketTypeID uuid.UUID
	Quantity     int32
	UnitPrice    decimal.Decimal
}

// Cart is the full order under evaluation
type Cart struct {
	VisitDate time.Time
	Lines     []CartLine
}

// Total returns the undiscounted cart total
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total
}

// AppliedPromotion names one promotion that contributed to the outcome
type AppliedPromotion struct {
	PromotionID uuid.UUID
	Name        string
}

// LinePricing is the per-line outcome of promotion evaluation, parallel to Cart.Lines
type LinePricing struct {
	UnitPrice decimal.Decimal // effective unit price after fixed-price overrides
	Discount  decimal.Decimal // line-level discount, never exceeds the line gross
}

// GiftLine is a bonus zero-priced line added by a free-ticket action
type GiftLine struct {
	TicketTypeID uuid.UUID
	Quantity     int32
	PromotionID  uuid.UUID
}

// EvaluationResult is what the promotion engine returns; it never mutates state
type EvaluationResult struct {
	Applied       []AppliedPromotion
	Lines         []LinePricing
	Gifts         []GiftLine
	GiftPoints    int32           // points to award after payment completes
	TotalDiscount decimal.Decimal // undiscounted total minus final total
}

// PromotionEvaluator evaluates promotion eligibility and computes discount and
// gift actions for a cart. Evaluation is repeatable and side-effect-free.
type PromotionEvaluator interface {
	Evaluate(ctx context.Context, cart Cart, visitor domain.VisitorContext) (*EvaluationResult, error)
}

// ItemRequest is one requested line of a new reservation
type ItemRequest struct {
	TicketTypeID uuid.UUID
	Quantity     int32
}

// CreateReservationRequest carries everything reservation creation needs
type CreateReservationRequest struct {
	VisitorID     uuid.UUID
	VisitorType   string
	MemberLevel   string
	VisitDate     time.Time
	PaymentMethod string
	Items         []ItemRequest
}

// PayReservationRequest records a completed payment against a reservation
type PayReservationRequest struct {
	ReservationID uuid.UUID
	PaymentMethod string
}

// CancelReservationRequest cancels a reservation, cascading through the
// refund workflow when payment has already completed
type CancelReservationRequest struct {
	ReservationID uuid.UUID
	RequestedBy   uuid.UUID
	ProcessorID   uuid.UUID
	Reason        string
}

// ReservationResult is the outcome of a reservation workflow operation
type ReservationResult struct {
	Reservation *domain.Reservation
	Tickets     []*domain.Ticket // populated by Pay
	Message     string
}

// ReservationService orchestrates pricing, promotion evaluation and the
// reservation/payment state machine
type ReservationService interface {
	Create(ctx context.Context, req CreateReservationRequest) (*ReservationResult, error)
	Pay(ctx context.Context, req PayReservationRequest) (*ReservationResult, error)
	Cancel(ctx context.Context, req CancelReservationRequest) (*ReservationResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

// RequestRefundRequest asks for a refund of one ticket
type RequestRefundRequest struct {
	TicketID       uuid.UUID
	RequestedBy    uuid.UUID
	Reason         string
	IsAdminRequest bool
	ProcessorID    uuid.UUID // staff member acting, required for admin requests
}

// ProcessRefundRequest applies a staff decision to a pending refund
type ProcessRefundRequest struct {
	RefundID    uuid.UUID
	Decision    domain.RefundDecision
	ProcessorID uuid.UUID
	Notes       string
}

// BatchRefundRequest refunds many tickets in one call
type BatchRefundRequest struct {
	TicketIDs   []uuid.UUID
	Reason      string
	ProcessorID uuid.UUID
}

// RefundResult is the outcome of a single-ticket refund operation
type RefundResult struct {
	Record  *domain.RefundRecord
	Message string
}

// BatchRefundItemResult reports one ticket's outcome within a batch
type BatchRefundItemResult struct {
	TicketID uuid.UUID
	Success  bool
	Message  string
	Amount   decimal.Decimal
}

// BatchRefundResult aggregates a batch's per-ticket outcomes
type BatchRefundResult struct {
	Results       []BatchRefundItemResult
	Succeeded     int
	Failed        int
	TotalRefunded decimal.Decimal
}

// RefundService drives the request/approve-or-reject/complete refund pipeline
type RefundService interface {
	RequestRefund(ctx context.Context, req RequestRefundRequest) (*RefundResult, error)
	ProcessRefund(ctx context.Context, req ProcessRefundRequest) (*RefundResult, error)
	BatchRefund(ctx context.Context, req BatchRefundRequest) (*BatchRefundResult, error)
	GetByTicket(ctx context.Context, ticketID uuid.UUID) (*domain.RefundRecord, error)
}

// CatalogService exposes the ticket-type catalog and audited price corrections
type CatalogService interface {
	ListTicketTypes(ctx context.Context) ([]*domain.TicketType, error)
	CorrectBasePrice(ctx context.Context, ticketTypeID uuid.UUID, newPrice decimal.Decimal, changedBy uuid.UUID) error
}

// LedgerReport aggregates the ledger entries of a date range
type LedgerReport struct {
	From         time.Time
	To           time.Time
	Entries      []*domain.FinancialRecord
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal // income minus expense over the range
}

// FinanceService reads the append-only ledger
type FinanceService interface {
	// LedgerRange reports entries with transaction dates in [from, to)
	LedgerRange(ctx context.Context, from, to time.Time) (*LedgerReport, error)
}

package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
)

// TicketTypeRepository persists the ticket-type catalog
type TicketTypeRepository interface {
	// GetByID retrieves a ticket type by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.TicketType, error)

	// GetByIDForUpdate retrieves a ticket type holding a row lock, serializing
	// concurrent stock checks against the same type
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*domain.TicketType, error)

	// CountSold returns how many tickets of the type are already committed
	// (reserved, not cancelled) for the visit date
	CountSold(ctx context.Context, db DBTX, ticketTypeID uuid.UUID, visitDate time.Time) (int32, error)

	// UpdateBasePrice applies an administrative price correction and appends
	// the audit row in the same statement sequence
	UpdateBasePrice(ctx context.Context, tx DBTX, id uuid.UUID, newPrice decimal.Decimal, changedBy uuid.UUID) error

	// List returns the full catalog
	List(ctx context.Context, db DBTX) ([]*domain.TicketType, error)
}

// PriceRuleRepository reads pricing rules; rules are administered out of band
type PriceRuleRepository interface {
	// ListByTicketType returns every rule defined for the type
	ListByTicketType(ctx context.Context, db DBTX, ticketTypeID uuid.UUID) ([]*domain.PriceRule, error)
}

// PromotionRepository persists promotions with their conditions and actions
type PromotionRepository interface {
	// ListActive returns active promotions, conditions and actions loaded,
	// ordered by display priority
	ListActive(ctx context.Context, db DBTX) ([]*domain.Promotion, error)

	// CountUsageByVisitor returns how many times the visitor has used the promotion
	CountUsageByVisitor(ctx context.Context, db DBTX, promotionID, visitorID uuid.UUID) (int32, error)

	// IncrementUsage atomically increments the campaign usage counter with a
	// ceiling at the total limit, and records the visitor's usage. Returns
	// domain.ErrPromotionExhausted when the ceiling would be exceeded.
	IncrementUsage(ctx context.Context, tx DBTX, promotionID, visitorID uuid.UUID) error
}

// ReservationRepository persists reservations with their items
type ReservationRepository interface {
	// Create persists the reservation and all its items
	Create(ctx context.Context, tx DBTX, reservation *domain.Reservation) error

	// GetByID retrieves a reservation with its items
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Reservation, error)

	// GetItemByID retrieves a single reservation item
	GetItemByID(ctx context.Context, db DBTX, itemID uuid.UUID) (*domain.ReservationItem, error)

	// MarkPaid flips a pending reservation to Confirmed/Paid, recording the
	// payment method when one is supplied. Returns a state conflict when the
	// reservation is no longer awaiting payment.
	MarkPaid(ctx context.Context, tx DBTX, id uuid.UUID, paymentMethod string) error

	// MarkCancelled flips a non-terminal reservation to Cancelled with the
	// given payment status. Returns a state conflict when the reservation is
	// already terminal.
	MarkCancelled(ctx context.Context, tx DBTX, id uuid.UUID, payment domain.PaymentStatus) error

	// MarkRefunded flips a paid reservation's payment status to Refunded.
	// A reservation whose payment is already refunded is left untouched.
	MarkRefunded(ctx context.Context, tx DBTX, id uuid.UUID) error
}

// TicketRepository persists issued tickets
type TicketRepository interface {
	// CreateBatch inserts all tickets issued for one payment
	CreateBatch(ctx context.Context, tx DBTX, tickets []*domain.Ticket) error

	// GetByID retrieves a ticket by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Ticket, error)

	// UpdateStatus updates a ticket's status
	UpdateStatus(ctx context.Context, tx DBTX, id uuid.UUID, status domain.TicketStatus) error

	// ListByReservation returns every ticket issued for the reservation
	ListByReservation(ctx context.Context, db DBTX, reservationID uuid.UUID) ([]*domain.Ticket, error)
}

// RefundRepository persists refund records
type RefundRepository interface {
	// Create inserts a refund record; the ticket_id unique constraint
	// guarantees at most one record per ticket
	Create(ctx context.Context, tx DBTX, record *domain.RefundRecord) error

	// GetByID retrieves a refund record by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.RefundRecord, error)

	// GetByTicketID retrieves the refund record of a ticket, if any
	GetByTicketID(ctx context.Context, db DBTX, ticketID uuid.UUID) (*domain.RefundRecord, error)

	// UpdateStatus applies a state transition with processor attribution.
	// Only a pending record transitions; returns
	// domain.ErrRefundAlreadyProcessed when the record was already decided.
	UpdateStatus(ctx context.Context, tx DBTX, id uuid.UUID, status domain.RefundStatus, processorID uuid.UUID, notes string, processedAt time.Time) error
}

// FinancialRepository appends to the financial ledger; entries are never mutated
type FinancialRepository interface {
	// Append inserts a ledger entry
	Append(ctx context.Context, tx DBTX, record *domain.FinancialRecord) error

	// ListByDateRange returns ledger entries with transaction dates in [from, to)
	ListByDateRange(ctx context.Context, db DBTX, from, to time.Time) ([]*domain.FinancialRecord, error)
}

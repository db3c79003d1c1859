package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// ReservationRepository implements ports.ReservationRepository
type ReservationRepository struct {
	db ports.DBPort
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db ports.DBPort) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// Create persists the reservation and all its items
func (r *ReservationRepository) Create(ctx context.Context, tx ports.DBTX, reservation *domain.Reservation) error {
	c := r.conn(tx)

	discount, err := decimalToNumeric(reservation.DiscountAmount)
	if err != nil {
		return err
	}
	total, err := decimalToNumeric(reservation.TotalAmount)
	if err != nil {
		return err
	}

	_, err = c.Exec(ctx, `
		INSERT INTO reservations (id, visitor_id, visit_date, reserved_at,
			discount_amount, total_amount, payment_status, status, promotion_id,
			payment_method, pending_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		reservation.ID, reservation.VisitorID, reservation.VisitDate,
		reservation.ReservedAt, discount, total,
		string(reservation.PaymentStatus), string(reservation.Status),
		nullUUID(reservation.PromotionID), nullText(reservation.PaymentMethod),
		reservation.PendingPoints)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	for i := range reservation.Items {
		item := &reservation.Items[i]
		unitPrice, err := decimalToNumeric(item.UnitPrice)
		if err != nil {
			return err
		}
		itemDiscount, err := decimalToNumeric(item.DiscountAmount)
		if err != nil {
			return err
		}
		lineTotal, err := decimalToNumeric(item.LineTotal)
		if err != nil {
			return err
		}

		_, err = c.Exec(ctx, `
			INSERT INTO reservation_items (id, reservation_id, ticket_type_id,
				quantity, unit_price, discount_amount, line_total, applied_rule_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.ReservationID, item.TicketTypeID, item.Quantity,
			unitPrice, itemDiscount, lineTotal, nullUUID(item.AppliedRuleID))
		if err != nil {
			return fmt.Errorf("insert reservation item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a reservation with its items
func (r *ReservationRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Reservation, error) {
	c := r.conn(db)

	var (
		res           domain.Reservation
		discount      pgtype.Numeric
		total         pgtype.Numeric
		promotionID   pgtype.UUID
		paymentMethod pgtype.Text
	)
	err := c.QueryRow(ctx, `
		SELECT id, visitor_id, visit_date, reserved_at, discount_amount,
		       total_amount, payment_status, status, promotion_id,
		       payment_method, pending_points, created_at, updated_at
		FROM reservations WHERE id = $1`, id).
		Scan(&res.ID, &res.VisitorID, &res.VisitDate, &res.ReservedAt,
			&discount, &total, &res.PaymentStatus, &res.Status,
			&promotionID, &paymentMethod, &res.PendingPoints,
			&res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReservationNotFound.WithDetail("reservation_id", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	res.DiscountAmount, err = pgNumericToDecimal(discount)
	if err != nil {
		return nil, fmt.Errorf("convert discount: %w", err)
	}
	res.TotalAmount, err = pgNumericToDecimal(total)
	if err != nil {
		return nil, fmt.Errorf("convert total: %w", err)
	}
	res.PromotionID = uuidPtr(promotionID)
	res.PaymentMethod = paymentMethod.String

	rows, err := c.Query(ctx, `
		SELECT id, reservation_id, ticket_type_id, quantity, unit_price,
		       discount_amount, line_total, applied_rule_id
		FROM reservation_items WHERE reservation_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list reservation items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanReservationItem(rows)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetItemByID retrieves a single reservation item
func (r *ReservationRepository) GetItemByID(ctx context.Context, db ports.DBTX, itemID uuid.UUID) (*domain.ReservationItem, error) {
	row := r.conn(db).QueryRow(ctx, `
		SELECT id, reservation_id, ticket_type_id, quantity, unit_price,
		       discount_amount, line_total, applied_rule_id
		FROM reservation_items WHERE id = $1`, itemID)

	item, err := scanReservationItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReservationNotFound.WithDetail("item_id", itemID.String())
	}
	return item, err
}

// MarkPaid flips a pending reservation to Confirmed/Paid. The payment_status
// guard makes concurrent payments race on the same row: exactly one caller
// sees the transition, everyone else gets a state conflict.
func (r *ReservationRepository) MarkPaid(ctx context.Context, tx ports.DBTX, id uuid.UUID, paymentMethod string) error {
	tag, err := r.conn(tx).Exec(ctx, `
		UPDATE reservations
		SET status = 'confirmed', payment_status = 'paid',
		    payment_method = COALESCE(NULLIF($2, ''), payment_method),
		    updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'
		  AND status NOT IN ('cancelled', 'completed')`,
		id, paymentMethod)
	if err != nil {
		return fmt.Errorf("mark reservation paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeReservationStateConflict,
			"reservation is not awaiting payment").
			WithDetail("reservation_id", id.String())
	}
	return nil
}

// MarkCancelled flips a non-terminal reservation to Cancelled with the given
// payment status. Zero rows means another caller reached a terminal state
// first.
func (r *ReservationRepository) MarkCancelled(ctx context.Context, tx ports.DBTX, id uuid.UUID, payment domain.PaymentStatus) error {
	tag, err := r.conn(tx).Exec(ctx, `
		UPDATE reservations
		SET status = 'cancelled', payment_status = $2, updated_at = now()
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed')`,
		id, string(payment))
	if err != nil {
		return fmt.Errorf("mark reservation cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeReservationStateConflict,
			"reservation is already cancelled or completed").
			WithDetail("reservation_id", id.String())
	}
	return nil
}

// MarkRefunded flips a paid reservation's payment status to Refunded. Zero
// rows means the payment was already refunded, which is not an error here.
func (r *ReservationRepository) MarkRefunded(ctx context.Context, tx ports.DBTX, id uuid.UUID) error {
	_, err := r.conn(tx).Exec(ctx, `
		UPDATE reservations
		SET payment_status = 'refunded', updated_at = now()
		WHERE id = $1 AND payment_status = 'paid'`, id)
	if err != nil {
		return fmt.Errorf("mark reservation refunded: %w", err)
	}
	return nil
}

func scanReservationItem(row pgx.Row) (*domain.ReservationItem, error) {
	var (
		item          domain.ReservationItem
		unitPrice     pgtype.Numeric
		discount      pgtype.Numeric
		lineTotal     pgtype.Numeric
		appliedRuleID pgtype.UUID
	)
	err := row.Scan(&item.ID, &item.ReservationID, &item.TicketTypeID,
		&item.Quantity, &unitPrice, &discount, &lineTotal, &appliedRuleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan reservation item: %w", err)
	}

	item.UnitPrice, err = pgNumericToDecimal(unitPrice)
	if err != nil {
		return nil, fmt.Errorf("convert unit price: %w", err)
	}
	item.DiscountAmount, err = pgNumericToDecimal(discount)
	if err != nil {
		return nil, fmt.Errorf("convert discount: %w", err)
	}
	item.LineTotal, err = pgNumericToDecimal(lineTotal)
	if err != nil {
		return nil, fmt.Errorf("convert line total: %w", err)
	}
	item.AppliedRuleID = uuidPtr(appliedRuleID)
	return &item, nil
}

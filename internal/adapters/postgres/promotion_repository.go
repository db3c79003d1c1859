package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// PromotionRepository implements ports.PromotionRepository
type PromotionRepository struct {
	db ports.DBPort
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db ports.DBPort) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// ListActive returns active promotions with conditions and actions loaded,
// ordered by application priority
func (r *PromotionRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*domain.Promotion, error) {
	c := r.conn(db)

	rows, err := c.Query(ctx, `
		SELECT id, name, type, starts_at, ends_at, per_user_limit, total_limit,
		       used_count, combinable, priority, active, created_at
		FROM promotions
		WHERE active
		ORDER BY priority, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	defer rows.Close()

	var promotions []*domain.Promotion
	byID := make(map[uuid.UUID]*domain.Promotion)
	for rows.Next() {
		var (
			p            domain.Promotion
			perUserLimit pgtype.Int4
			totalLimit   pgtype.Int4
		)
		err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.StartsAt, &p.EndsAt,
			&perUserLimit, &totalLimit, &p.UsedCount, &p.Combinable,
			&p.Priority, &p.Active, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		p.PerUserLimit = int4Ptr(perUserLimit)
		p.TotalLimit = int4Ptr(totalLimit)
		promotions = append(promotions, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(promotions) == 0 {
		return nil, nil
	}

	if err := r.loadConditions(ctx, c, byID); err != nil {
		return nil, err
	}
	if err := r.loadActions(ctx, c, byID); err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *PromotionRepository) loadConditions(ctx context.Context, c ports.DBTX, byID map[uuid.UUID]*domain.Promotion) error {
	rows, err := c.Query(ctx, `
		SELECT pc.id, pc.promotion_id, pc.type, pc.ticket_type_id, pc.min_quantity,
		       pc.min_amount, pc.visitor_type, pc.member_level, pc.date_from,
		       pc.date_to, pc.days_of_week, pc.priority
		FROM promotion_conditions pc
		JOIN promotions p ON p.id = pc.promotion_id
		WHERE p.active
		ORDER BY pc.priority`)
	if err != nil {
		return fmt.Errorf("list promotion conditions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cond         domain.PromotionCondition
			ticketTypeID pgtype.UUID
			minQty       pgtype.Int4
			minAmount    pgtype.Numeric
			visitorType  pgtype.Text
			memberLevel  pgtype.Text
			dateFrom     pgtype.Timestamptz
			dateTo       pgtype.Timestamptz
			days         []int32
		)
		err := rows.Scan(&cond.ID, &cond.PromotionID, &cond.Type, &ticketTypeID,
			&minQty, &minAmount, &visitorType, &memberLevel, &dateFrom, &dateTo,
			&days, &cond.Priority)
		if err != nil {
			return fmt.Errorf("scan promotion condition: %w", err)
		}
		cond.TicketTypeID = uuidPtr(ticketTypeID)
		cond.MinQuantity = int4Ptr(minQty)
		cond.MinAmount, err = pgNumericPtrToDecimal(minAmount)
		if err != nil {
			return fmt.Errorf("convert condition amount: %w", err)
		}
		if visitorType.Valid {
			cond.VisitorType = &visitorType.String
		}
		if memberLevel.Valid {
			cond.MemberLevel = &memberLevel.String
		}
		cond.DateFrom = timePtr(dateFrom)
		cond.DateTo = timePtr(dateTo)
		for _, d := range days {
			cond.DaysOfWeek = append(cond.DaysOfWeek, time.Weekday(d))
		}

		if p, ok := byID[cond.PromotionID]; ok {
			p.Conditions = append(p.Conditions, cond)
		}
	}
	return rows.Err()
}

func (r *PromotionRepository) loadActions(ctx context.Context, c ports.DBTX, byID map[uuid.UUID]*domain.Promotion) error {
	rows, err := c.Query(ctx, `
		SELECT pa.id, pa.promotion_id, pa.type, pa.target_ticket_type_id,
		       pa.percent, pa.amount, pa.quantity, pa.points, pa.position
		FROM promotion_actions pa
		JOIN promotions p ON p.id = pa.promotion_id
		WHERE p.active
		ORDER BY pa.position`)
	if err != nil {
		return fmt.Errorf("list promotion actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			action   domain.PromotionAction
			targetID pgtype.UUID
			percent  pgtype.Numeric
			amount   pgtype.Numeric
			quantity pgtype.Int4
			points   pgtype.Int4
		)
		err := rows.Scan(&action.ID, &action.PromotionID, &action.Type, &targetID,
			&percent, &amount, &quantity, &points, &action.Position)
		if err != nil {
			return fmt.Errorf("scan promotion action: %w", err)
		}
		action.TargetTicketTypeID = uuidPtr(targetID)
		action.Percent, err = pgNumericPtrToDecimal(percent)
		if err != nil {
			return fmt.Errorf("convert action percent: %w", err)
		}
		action.Amount, err = pgNumericPtrToDecimal(amount)
		if err != nil {
			return fmt.Errorf("convert action amount: %w", err)
		}
		action.Quantity = int4Ptr(quantity)
		action.Points = int4Ptr(points)

		if p, ok := byID[action.PromotionID]; ok {
			p.Actions = append(p.Actions, action)
		}
	}
	return rows.Err()
}

// CountUsageByVisitor returns how many times the visitor has used the promotion
func (r *PromotionRepository) CountUsageByVisitor(ctx context.Context, db ports.DBTX, promotionID, visitorID uuid.UUID) (int32, error) {
	var count int32
	err := r.conn(db).QueryRow(ctx,
		`SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = $1 AND visitor_id = $2`,
		promotionID, visitorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count promotion usage: %w", err)
	}
	return count, nil
}

// IncrementUsage bumps the campaign counter with a ceiling at the total
// limit, then records the visitor's usage. The conditional UPDATE is the
// only writer of used_count, so two concurrent reservations can never push
// it past the limit.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, tx ports.DBTX, promotionID, visitorID uuid.UUID) error {
	c := r.conn(tx)

	tag, err := c.Exec(ctx, `
		UPDATE promotions
		SET used_count = used_count + 1
		WHERE id = $1
		  AND (total_limit IS NULL OR used_count < total_limit)`,
		promotionID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromotionExhausted.WithDetail("promotion_id", promotionID.String())
	}

	_, err = c.Exec(ctx,
		`INSERT INTO promotion_usages (id, promotion_id, visitor_id, used_at)
		 VALUES ($1, $2, $3, now())`,
		uuid.New(), promotionID, visitorID)
	if err != nil {
		return fmt.Errorf("record promotion usage: %w", err)
	}
	return nil
}

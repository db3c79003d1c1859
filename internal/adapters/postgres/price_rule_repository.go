package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// PriceRuleRepository implements ports.PriceRuleRepository
type PriceRuleRepository struct {
	db ports.DBPort
}

// NewPriceRuleRepository creates a new price rule repository
func NewPriceRuleRepository(db ports.DBPort) *PriceRuleRepository {
	return &PriceRuleRepository{db: db}
}

func (r *PriceRuleRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// ListByTicketType returns every rule defined for the type, best-priority first
func (r *PriceRuleRepository) ListByTicketType(ctx context.Context, db ports.DBTX, ticketTypeID uuid.UUID) ([]*domain.PriceRule, error) {
	rows, err := r.conn(db).Query(ctx, `
		SELECT id, ticket_type_id, name, priority, effective_start, effective_end,
		       min_quantity, max_quantity, price, created_at
		FROM price_rules
		WHERE ticket_type_id = $1
		ORDER BY priority, created_at DESC`,
		ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("list price rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.PriceRule
	for rows.Next() {
		var (
			rule   domain.PriceRule
			minQty pgtype.Int4
			maxQty pgtype.Int4
			price  pgtype.Numeric
		)
		err := rows.Scan(&rule.ID, &rule.TicketTypeID, &rule.Name, &rule.Priority,
			&rule.EffectiveStart, &rule.EffectiveEnd, &minQty, &maxQty, &price, &rule.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan price rule: %w", err)
		}
		rule.MinQuantity = int4Ptr(minQty)
		rule.MaxQuantity = int4Ptr(maxQty)
		rule.Price, err = pgNumericToDecimal(price)
		if err != nil {
			return nil, fmt.Errorf("convert rule price: %w", err)
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// Package pricing resolves the effective unit price for a ticket type on a
// visit date: time/quantity-bounded price rules override the catalog base
// price, best priority winning.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// Resolver implements ports.PriceResolver
type Resolver struct {
	ticketTypes ports.TicketTypeRepository
	rules       ports.PriceRuleRepository
	logger      ports.Logger
}

// NewResolver creates a new price resolver
func NewResolver(ticketTypes ports.TicketTypeRepository, rules ports.PriceRuleRepository, logger ports.Logger) *Resolver {
	return &Resolver{
		ticketTypes: ticketTypes,
		rules:       rules,
		logger:      logger,
	}
}

// Resolve picks the single effective unit price for the ticket type, visit
// date and quantity. Among rules whose window contains the date and whose
// quantity bounds contain the quantity, the lowest priority value wins; ties
// break to the most recently created rule. With no match the base price
// applies. Read-only: Resolve never writes.
func (r *Resolver) Resolve(ctx context.Context, ticketTypeID uuid.UUID, visitDate time.Time, quantity int32) (ports.PriceQuote, error) {
	if quantity <= 0 {
		return ports.PriceQuote{}, domain.ErrQuantityInvalid.WithDetail("quantity", quantity)
	}

	ticketType, err := r.ticketTypes.GetByID(ctx, nil, ticketTypeID)
	if err != nil {
		return ports.PriceQuote{}, err
	}

	rules, err := r.rules.ListByTicketType(ctx, nil, ticketTypeID)
	if err != nil {
		return ports.PriceQuote{}, fmt.Errorf("list price rules: %w", err)
	}

	var best *domain.PriceRule
	for _, rule := range rules {
		if !rule.Matches(visitDate, quantity) {
			continue
		}
		if best == nil || betterRule(rule, best) {
			best = rule
		}
	}

	if best == nil {
		return ports.PriceQuote{UnitPrice: ticketType.BasePrice}, nil
	}

	r.logger.Debug("price rule applied",
		ports.String("ticket_type_id", ticketTypeID.String()),
		ports.String("rule_id", best.ID.String()),
		ports.String("unit_price", best.Price.String()))

	ruleID := best.ID
	return ports.PriceQuote{UnitPrice: best.Price, AppliedRuleID: &ruleID}, nil
}

// betterRule reports whether candidate beats current: lower priority value
// wins, equal priorities break to the newer rule.
func betterRule(candidate, current *domain.PriceRule) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority < current.Priority
	}
	return candidate.CreatedAt.After(current.CreatedAt)
}

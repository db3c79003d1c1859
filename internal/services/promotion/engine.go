// Package promotion evaluates promotion eligibility conditions against a cart
// and computes the resulting discount and gift actions. The engine never
// mutates state; executing the side effects is the reservation workflow's job.
package promotion

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

var oneHundred = decimal.NewFromInt(100)

// Engine implements ports.PromotionEvaluator
type Engine struct {
	promotions ports.PromotionRepository
	logger     ports.Logger
}

// NewEngine creates a new promotion engine
func NewEngine(promotions ports.PromotionRepository, logger ports.Logger) *Engine {
	return &Engine{
		promotions: promotions,
		logger:     logger,
	}
}

// Evaluate runs every active promotion against the cart. A promotion is
// eligible only if all its conditions hold and its usage limits are not
// exhausted. Eligible promotions apply in priority order; a non-combinable
// promotion excludes every lower-priority one. Malformed conditions or
// actions surface as validation errors rather than being skipped.
func (e *Engine) Evaluate(ctx context.Context, cart ports.Cart, visitor domain.VisitorContext) (*ports.EvaluationResult, error) {
	result := &ports.EvaluationResult{
		Lines:         make([]ports.LinePricing, len(cart.Lines)),
		TotalDiscount: decimal.Zero,
	}
	for i, line := range cart.Lines {
		result.Lines[i] = ports.LinePricing{UnitPrice: line.UnitPrice, Discount: decimal.Zero}
	}
	if len(cart.Lines) == 0 {
		return result, nil
	}

	promos, err := e.promotions.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}

	var eligible []*domain.Promotion
	for _, p := range promos {
		ok, err := e.isEligible(ctx, p, cart, visitor)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, p)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})

	for _, p := range eligible {
		if err := e.apply(p, cart, result); err != nil {
			return nil, err
		}
		result.Applied = append(result.Applied, ports.AppliedPromotion{PromotionID: p.ID, Name: p.Name})
		if !p.Combinable {
			break
		}
	}

	finalTotal := decimal.Zero
	for i := range result.Lines {
		qty := decimal.NewFromInt32(cart.Lines[i].Quantity)
		finalTotal = finalTotal.Add(result.Lines[i].UnitPrice.Mul(qty).Sub(result.Lines[i].Discount))
	}
	result.TotalDiscount = cart.Total().Sub(finalTotal)

	return result, nil
}

// isEligible checks window, usage limits and all conditions of one promotion
func (e *Engine) isEligible(ctx context.Context, p *domain.Promotion, cart ports.Cart, visitor domain.VisitorContext) (bool, error) {
	if !p.Active || !p.CoversDate(cart.VisitDate) || p.TotalLimitReached() {
		return false, nil
	}
	if p.PerUserLimit != nil {
		usage, err := e.promotions.CountUsageByVisitor(ctx, nil, p.ID, visitor.VisitorID)
		if err != nil {
			return false, fmt.Errorf("count promotion usage: %w", err)
		}
		if p.PerUserLimitReached(usage) {
			return false, nil
		}
	}

	conditions := append([]domain.PromotionCondition(nil), p.Conditions...)
	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].Priority < conditions[j].Priority
	})
	for i := range conditions {
		c := &conditions[i]
		if err := c.Validate(); err != nil {
			return false, err
		}
		if !conditionHolds(c, cart, visitor) {
			return false, nil
		}
	}
	return true, nil
}

// conditionHolds evaluates a single, already-validated condition
func conditionHolds(c *domain.PromotionCondition, cart ports.Cart, visitor domain.VisitorContext) bool {
	switch c.Type {
	case domain.ConditionMinQuantity:
		var qty int32
		for _, line := range cart.Lines {
			if c.TicketTypeID == nil || line.TicketTypeID == *c.TicketTypeID {
				qty += line.Quantity
			}
		}
		return qty >= *c.MinQuantity
	case domain.ConditionMinAmount:
		return cart.Total().GreaterThanOrEqual(*c.MinAmount)
	case domain.ConditionSpecificTicket:
		for _, line := range cart.Lines {
			if line.TicketTypeID == *c.TicketTypeID {
				return true
			}
		}
		return false
	case domain.ConditionVisitorType:
		return visitor.VisitorType == *c.VisitorType
	case domain.ConditionMemberLevel:
		return visitor.MemberLevel == *c.MemberLevel
	case domain.ConditionVisitDate:
		return !cart.VisitDate.Before(*c.DateFrom) && cart.VisitDate.Before(*c.DateTo)
	case domain.ConditionDayOfWeek:
		day := cart.VisitDate.Weekday()
		for _, d := range c.DaysOfWeek {
			if d == day {
				return true
			}
		}
		return false
	}
	return false
}

// apply executes the promotion's actions in declaration order against the
// working line pricing. Line discounts never push a line below zero.
func (e *Engine) apply(p *domain.Promotion, cart ports.Cart, result *ports.EvaluationResult) error {
	actions := append([]domain.PromotionAction(nil), p.Actions...)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Position < actions[j].Position
	})

	for i := range actions {
		a := &actions[i]
		if err := a.Validate(); err != nil {
			return err
		}

		switch a.Type {
		case domain.ActionPercentOff:
			for j, line := range cart.Lines {
				if !targets(a, line.TicketTypeID) {
					continue
				}
				gross := result.Lines[j].UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
				cut := gross.Mul(*a.Percent).Div(oneHundred).Round(2)
				result.Lines[j].Discount = capDiscount(result.Lines[j].Discount.Add(cut), gross)
			}
		case domain.ActionAmountOff:
			for j, line := range cart.Lines {
				if !targets(a, line.TicketTypeID) {
					continue
				}
				gross := result.Lines[j].UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
				result.Lines[j].Discount = capDiscount(result.Lines[j].Discount.Add(*a.Amount), gross)
			}
		case domain.ActionFixedPrice:
			for j, line := range cart.Lines {
				if line.TicketTypeID != *a.TargetTicketTypeID {
					continue
				}
				result.Lines[j].UnitPrice = *a.Amount
				gross := a.Amount.Mul(decimal.NewFromInt32(line.Quantity))
				result.Lines[j].Discount = capDiscount(result.Lines[j].Discount, gross)
			}
		case domain.ActionFreeTicket:
			result.Gifts = append(result.Gifts, ports.GiftLine{
				TicketTypeID: *a.TargetTicketTypeID,
				Quantity:     *a.Quantity,
				PromotionID:  p.ID,
			})
		case domain.ActionGiftPoints:
			result.GiftPoints += *a.Points
		}
	}
	return nil
}

// targets reports whether the action applies to the given ticket type
func targets(a *domain.PromotionAction, ticketTypeID uuid.UUID) bool {
	return a.TargetTicketTypeID == nil || *a.TargetTicketTypeID == ticketTypeID
}

// capDiscount keeps a line discount from exceeding the line gross
func capDiscount(discount, gross decimal.Decimal) decimal.Decimal {
	if discount.GreaterThan(gross) {
		return gross
	}
	return discount
}

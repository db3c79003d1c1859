package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionType classifies a promotion campaign
type PromotionType string

const (
	PromotionTypePercent       PromotionType = "percent"
	PromotionTypeFixed         PromotionType = "fixed"
	PromotionTypeFullReduction PromotionType = "full_reduction"
	PromotionTypeFullGift      PromotionType = "full_gift"
	PromotionTypePackage       PromotionType = "package"
	PromotionTypeCoupon        PromotionType = "coupon"
)

// ConditionType classifies a promotion eligibility condition
type ConditionType string

const (
	ConditionMinQuantity    ConditionType = "min_quantity"
	ConditionMinAmount      ConditionType = "min_amount"
	ConditionSpecificTicket ConditionType = "specific_ticket"
	ConditionVisitorType    ConditionType = "visitor_type"
	ConditionMemberLevel    ConditionType = "member_level"
	ConditionVisitDate      ConditionType = "visit_date"
	ConditionDayOfWeek      ConditionType = "day_of_week"
)

// ActionType classifies what an eligible promotion does to the cart
type ActionType string

const (
	ActionPercentOff ActionType = "percent_off"
	ActionAmountOff  ActionType = "amount_off"
	ActionFixedPrice ActionType = "fixed_price"
	ActionFreeTicket ActionType = "free_ticket"
	ActionGiftPoints ActionType = "gift_points"
)

// Promotion is a named campaign combining eligibility conditions and actions
type Promotion struct {
	ID           uuid.UUID
	Name         string
	Type         PromotionType
	StartsAt     time.Time
	EndsAt       time.Time
	PerUserLimit *int32
	TotalLimit   *int32
	UsedCount    int32
	Combinable   bool
	Priority     int32 // display/application order, lower first
	Active       bool
	Conditions   []PromotionCondition
	Actions      []PromotionAction
	CreatedAt    time.Time
}

// CoversDate reports whether the activity window [StartsAt, EndsAt) covers the visit date
func (p *Promotion) CoversDate(visitDate time.Time) bool {
	return !visitDate.Before(p.StartsAt) && visitDate.Before(p.EndsAt)
}

// TotalLimitReached reports whether the campaign-wide usage limit is exhausted
func (p *Promotion) TotalLimitReached() bool {
	return p.TotalLimit != nil && p.UsedCount >= *p.TotalLimit
}

// PerUserLimitReached reports whether the given visitor's usage count exhausts the per-user limit
func (p *Promotion) PerUserLimitReached(visitorUsage int32) bool {
	return p.PerUserLimit != nil && visitorUsage >= *p.PerUserLimit
}

// PromotionCondition is one eligibility condition of a promotion.
// Only the fields relevant to the condition type are set.
type PromotionCondition struct {
	ID           uuid.UUID
	PromotionID  uuid.UUID
	Type         ConditionType
	TicketTypeID *uuid.UUID       // scopes min_quantity, required for specific_ticket
	MinQuantity  *int32           // min_quantity
	MinAmount    *decimal.Decimal // min_amount
	VisitorType  *string          // visitor_type
	MemberLevel  *string          // member_level
	DateFrom     *time.Time       // visit_date range start, inclusive
	DateTo       *time.Time       // visit_date range end, exclusive
	DaysOfWeek   []time.Weekday   // day_of_week
	Priority     int32            // evaluation order
}

// Validate checks the condition carries the fields its type requires
func (c *PromotionCondition) Validate() error {
	switch c.Type {
	case ConditionMinQuantity:
		if c.MinQuantity == nil || *c.MinQuantity <= 0 {
			return NewDomainError(ErrorCodeValidationAction, "min_quantity condition requires a positive threshold").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionMinAmount:
		if c.MinAmount == nil || c.MinAmount.IsNegative() {
			return NewDomainError(ErrorCodeValidationAction, "min_amount condition requires a non-negative threshold").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionSpecificTicket:
		if c.TicketTypeID == nil {
			return NewDomainError(ErrorCodeValidationAction, "specific_ticket condition requires a ticket type").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionVisitorType:
		if c.VisitorType == nil || *c.VisitorType == "" {
			return NewDomainError(ErrorCodeValidationAction, "visitor_type condition requires a visitor type").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionMemberLevel:
		if c.MemberLevel == nil || *c.MemberLevel == "" {
			return NewDomainError(ErrorCodeValidationAction, "member_level condition requires a member level").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionVisitDate:
		if c.DateFrom == nil || c.DateTo == nil {
			return NewDomainError(ErrorCodeValidationAction, "visit_date condition requires a date range").
				WithDetail("condition_id", c.ID.String())
		}
		if !c.DateFrom.Before(*c.DateTo) {
			return NewDomainError(ErrorCodeValidationDateRange, "visit_date condition range is inverted").
				WithDetail("condition_id", c.ID.String())
		}
	case ConditionDayOfWeek:
		if len(c.DaysOfWeek) == 0 {
			return NewDomainError(ErrorCodeValidationAction, "day_of_week condition requires at least one day").
				WithDetail("condition_id", c.ID.String())
		}
	default:
		return NewDomainError(ErrorCodeValidationAction, "unknown condition type").
			WithDetail("condition_type", string(c.Type))
	}
	return nil
}

// PromotionAction is one effect an eligible promotion applies to the cart.
// Only the fields relevant to the action type are set.
type PromotionAction struct {
	ID                 uuid.UUID
	PromotionID        uuid.UUID
	Type               ActionType
	TargetTicketTypeID *uuid.UUID       // limits the action to one type; nil targets every line
	Percent            *decimal.Decimal // percent_off, 0-100
	Amount             *decimal.Decimal // amount_off and fixed_price
	Quantity           *int32           // free_ticket
	Points             *int32           // gift_points
	Position           int32            // declaration order
}

// Validate checks the action carries the fields its type requires
func (a *PromotionAction) Validate() error {
	switch a.Type {
	case ActionPercentOff:
		if a.Percent == nil || a.Percent.IsNegative() || a.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return NewDomainError(ErrorCodeValidationAction, "percent_off action requires a percent between 0 and 100").
				WithDetail("action_id", a.ID.String())
		}
	case ActionAmountOff:
		if a.Amount == nil || a.Amount.IsNegative() {
			return NewDomainError(ErrorCodeValidationAction, "amount_off action requires a non-negative amount").
				WithDetail("action_id", a.ID.String())
		}
	case ActionFixedPrice:
		if a.Amount == nil || a.Amount.IsNegative() {
			return NewDomainError(ErrorCodeValidationAction, "fixed_price action requires a non-negative price").
				WithDetail("action_id", a.ID.String())
		}
		if a.TargetTicketTypeID == nil {
			return NewDomainError(ErrorCodeValidationAction, "fixed_price action requires a target ticket type").
				WithDetail("action_id", a.ID.String())
		}
	case ActionFreeTicket:
		if a.TargetTicketTypeID == nil {
			return NewDomainError(ErrorCodeValidationAction, "free_ticket action requires a target ticket type").
				WithDetail("action_id", a.ID.String())
		}
		if a.Quantity == nil || *a.Quantity <= 0 {
			return NewDomainError(ErrorCodeValidationAction, "free_ticket action requires a positive quantity").
				WithDetail("action_id", a.ID.String())
		}
	case ActionGiftPoints:
		if a.Points == nil || *a.Points <= 0 {
			return NewDomainError(ErrorCodeValidationAction, "gift_points action requires a positive point amount").
				WithDetail("action_id", a.ID.String())
		}
	default:
		return NewDomainError(ErrorCodeValidationAction, "unknown action type").
			WithDetail("action_type", string(a.Type))
	}
	return nil
}

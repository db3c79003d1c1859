package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketType is a purchasable category of admission (e.g. Adult, Child).
// Immutable once referenced by issued tickets, except for administrative
// price corrections which are audited through PriceChange rows.
type TicketType struct {
	ID           uuid.UUID
	Name         string
	BasePrice    decimal.Decimal
	MaxSaleLimit *int32 // per visit date; nil means unlimited
	Eligibility  string // crowd the type admits, e.g. "adult", "child", "any"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSaleLimit returns true when the type caps how many tickets may be sold per visit date
func (t *TicketType) HasSaleLimit() bool {
	return t.MaxSaleLimit != nil && *t.MaxSaleLimit > 0
}

// RemainingStock returns how many more units can be sold for a visit date,
// given the count already sold. Returns a negative number when unlimited.
func (t *TicketType) RemainingStock(sold int32) int32 {
	if !t.HasSaleLimit() {
		return -1
	}
	return *t.MaxSaleLimit - sold
}

// PriceChange is an audit row recording an administrative base-price correction
type PriceChange struct {
	ID           uuid.UUID
	TicketTypeID uuid.UUID
	OldPrice     decimal.Decimal
	NewPrice     decimal.Decimal
	ChangedBy    uuid.UUID
	ChangedAt    time.Time
}

// PriceRule is a time/quantity-bounded override of a ticket type's price.
// The effective window is [EffectiveStart, EffectiveEnd); quantity bounds
// are inclusive on both ends and optional.
type PriceRule struct {
	ID             uuid.UUID
	TicketTypeID   uuid.UUID
	Name           string
	Priority       int32 // lower value wins
	EffectiveStart time.Time
	EffectiveEnd   time.Time
	MinQuantity    *int32
	MaxQuantity    *int32
	Price          decimal.Decimal
	CreatedAt      time.Time
}

// Matches reports whether the rule applies to the given visit date and quantity
func (r *PriceRule) Matches(visitDate time.Time, quantity int32) bool {
	if visitDate.Before(r.EffectiveStart) || !visitDate.Before(r.EffectiveEnd) {
		return false
	}
	if r.MinQuantity != nil && quantity < *r.MinQuantity {
		return false
	}
	if r.MaxQuantity != nil && quantity > *r.MaxQuantity {
		return false
	}
	return true
}

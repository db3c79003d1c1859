package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the payment side of a reservation, orthogonal to ReservationStatus
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ReservationStatus tracks the reservation lifecycle
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Reservation is a visitor's order for one or more ticket-type quantities on a visit date
type Reservation struct {
	ID             uuid.UUID
	VisitorID      uuid.UUID
	VisitDate      time.Time
	ReservedAt     time.Time
	Items          []ReservationItem
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentStatus  PaymentStatus
	Status         ReservationStatus
	PromotionID    *uuid.UUID
	PaymentMethod  string // recorded only, never processed
	PendingPoints  int32  // gift points awarded to the visitor once payment completes
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanBePaid reports whether the reservation accepts a payment
func (r *Reservation) CanBePaid() bool {
	return r.PaymentStatus == PaymentStatusPending &&
		r.Status != ReservationStatusCancelled &&
		r.Status != ReservationStatusCompleted
}

// CanBeCancelled reports whether the reservation may still be cancelled
func (r *Reservation) CanBeCancelled() bool {
	return r.Status != ReservationStatusCompleted && r.Status != ReservationStatusCancelled
}

// IsPaid reports whether payment has completed
func (r *Reservation) IsPaid() bool {
	return r.PaymentStatus == PaymentStatusPaid
}

// ComputeTotals recomputes line totals and the reservation aggregate.
// Line total = unit price x quantity - line discount, floored at zero;
// reservation total = sum of line totals, discount = sum of line discounts.
func (r *Reservation) ComputeTotals() {
	total := decimal.Zero
	discount := decimal.Zero
	for i := range r.Items {
		item := &r.Items[i]
		gross := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		if item.DiscountAmount.GreaterThan(gross) {
			item.DiscountAmount = gross
		}
		item.LineTotal = gross.Sub(item.DiscountAmount)
		total = total.Add(item.LineTotal)
		discount = discount.Add(item.DiscountAmount)
	}
	r.TotalAmount = total
	r.DiscountAmount = discount
}

// ReservationItem is one priced line of a reservation
type ReservationItem struct {
	ID             uuid.UUID
	ReservationID  uuid.UUID
	TicketTypeID   uuid.UUID
	Quantity       int32
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
	AppliedRuleID  *uuid.UUID // price rule that set the unit price, nil for base price
}

// PaidUnitPrice returns the per-unit price actually paid, net of the line's
// discount. The per-unit discount rounds up to the cent, so refunding every
// unit of a line never pays out more than the line total; residual cents from
// an uneven split stay with the park.
func (i *ReservationItem) PaidUnitPrice() decimal.Decimal {
	if i.Quantity <= 0 {
		return decimal.Zero
	}
	qty := decimal.NewFromInt32(i.Quantity)
	perUnitDiscount := i.DiscountAmount.Div(qty).RoundUp(2)
	paid := i.UnitPrice.Sub(perUnitDiscount)
	if paid.IsNegative() {
		return decimal.Zero
	}
	return paid
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus tracks an issued ticket's lifecycle
type TicketStatus string

const (
	TicketStatusIssued    TicketStatus = "issued"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusRefunded  TicketStatus = "refunded"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is one unit of admission, issued per unit of quantity when a
// reservation is paid. Valid for [ValidFrom, ValidUntil).
type Ticket struct {
	ID                uuid.UUID
	SerialNumber      string // globally unique, date-stamped prefix + random suffix
	ReservationItemID uuid.UUID
	VisitorID         *uuid.UUID
	ValidFrom         time.Time
	ValidUntil        time.Time
	Status            TicketStatus
	IssuedAt          time.Time
	UpdatedAt         time.Time
}

// CanBeRefunded reports whether the ticket is currently refund-eligible
func (t *Ticket) CanBeRefunded() bool {
	return t.Status == TicketStatusIssued
}

// IsOwnedBy reports whether the given visitor owns the ticket
func (t *Ticket) IsOwnedBy(visitorID uuid.UUID) bool {
	return t.VisitorID != nil && *t.VisitorID == visitorID
}

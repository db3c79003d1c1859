package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialType classifies a ledger entry
type FinancialType string

const (
	FinancialTypeIncome   FinancialType = "income"
	FinancialTypeExpense  FinancialType = "expense"
	FinancialTypeRefund   FinancialType = "refund"
	FinancialTypeTransfer FinancialType = "transfer"
)

// FinancialRecord is an append-only ledger entry created as a side effect
// of payment and refund. Never mutated after creation.
type FinancialRecord struct {
	ID              uuid.UUID
	Type            FinancialType
	Amount          decimal.Decimal
	TransactionDate time.Time
	Description     string
	ResponsibleID   *uuid.UUID // actor who triggered or approved the movement
	ReferenceID     *uuid.UUID // reservation or refund the entry compensates
	CreatedAt       time.Time
}

// VisitorContext carries the visitor attributes promotion evaluation needs
type VisitorContext struct {
	VisitorID   uuid.UUID
	VisitorType string // e.g. "adult", "child", "senior", "student"
	MemberLevel string // membership tier, empty for non-members
}

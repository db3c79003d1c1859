// Package finance reads the append-only ledger. Net revenue is always
// computed from the full entry history, never from mutated rows.
package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// Service implements ports.FinanceService
type Service struct {
	db        ports.DBPort
	financial ports.FinancialRepository
	logger    ports.Logger
}

// NewService creates a new finance service
func NewService(db ports.DBPort, financial ports.FinancialRepository, logger ports.Logger) *Service {
	return &Service{db: db, financial: financial, logger: logger}
}

// LedgerRange reports the ledger entries with transaction dates in [from, to)
// together with income, expense and net totals for the range. The read runs
// in a read-only transaction so the totals match the entries exactly.
func (s *Service) LedgerRange(ctx context.Context, from, to time.Time) (*ports.LedgerReport, error) {
	if !from.Before(to) {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationDateRange,
			fmt.Sprintf("range start %s is not before end %s",
				from.Format("2006-01-02"), to.Format("2006-01-02")))
	}

	var entries []*domain.FinancialRecord
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		entries, err = s.financial.ListByDateRange(ctx, tx, from, to)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	report := &ports.LedgerReport{
		From:         from,
		To:           to,
		Entries:      entries,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, entry := range entries {
		switch entry.Type {
		case domain.FinancialTypeIncome:
			report.TotalIncome = report.TotalIncome.Add(entry.Amount)
		case domain.FinancialTypeExpense, domain.FinancialTypeRefund:
			report.TotalExpense = report.TotalExpense.Add(entry.Amount)
		}
	}
	report.Net = report.TotalIncome.Sub(report.TotalExpense)

	s.logger.Debug("ledger range read",
		ports.String("from", from.Format("2006-01-02")),
		ports.String("to", to.Format("2006-01-02")),
		ports.Int("entries", len(entries)))

	return report, nil
}

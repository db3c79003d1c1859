// Package catalog exposes the ticket-type catalog and audited base-price
// corrections.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// Service implements ports.CatalogService
type Service struct {
	db          ports.DBPort
	ticketTypes ports.TicketTypeRepository
	logger      ports.Logger
}

// NewService creates a new catalog service
func NewService(db ports.DBPort, ticketTypes ports.TicketTypeRepository, logger ports.Logger) *Service {
	return &Service{db: db, ticketTypes: ticketTypes, logger: logger}
}

// ListTicketTypes returns the full catalog
func (s *Service) ListTicketTypes(ctx context.Context) ([]*domain.TicketType, error) {
	return s.ticketTypes.List(ctx, nil)
}

// CorrectBasePrice applies an administrative price correction. The new price
// and the audit row commit together; existing reservations keep the prices
// they were created with.
func (s *Service) CorrectBasePrice(ctx context.Context, ticketTypeID uuid.UUID, newPrice decimal.Decimal, changedBy uuid.UUID) error {
	if !newPrice.IsPositive() {
		return domain.ErrAmountInvalid.WithDetail("base_price", newPrice.String())
	}

	ticketType, err := s.ticketTypes.GetByID(ctx, nil, ticketTypeID)
	if err != nil {
		return err
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.ticketTypes.UpdateBasePrice(ctx, tx, ticketTypeID, newPrice, changedBy)
	})
	if err != nil {
		return fmt.Errorf("correct base price: %w", err)
	}

	s.logger.Info("base price corrected",
		ports.String("ticket_type_id", ticketTypeID.String()),
		ports.String("old_price", ticketType.BasePrice.String()),
		ports.String("new_price", newPrice.String()),
		ports.String("changed_by", changedBy.String()))
	return nil
}

// Package refund drives the request → approve/reject → complete pipeline
// that reverses paid tickets, with a compensating expense ledger entry per
// completed refund.
package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/pkg/observability"
	"github.com/parkgate/ticketing-service/pkg/timeutil"
)

// Service implements ports.RefundService
type Service struct {
	db           ports.DBPort
	tickets      ports.TicketRepository
	refunds      ports.RefundRepository
	reservations ports.ReservationRepository
	financial    ports.FinancialRepository
	logger       ports.Logger
}

// NewService creates a new refund service
func NewService(
	db ports.DBPort,
	tickets ports.TicketRepository,
	refunds ports.RefundRepository,
	reservations ports.ReservationRepository,
	financial ports.FinancialRepository,
	logger ports.Logger,
) *Service {
	return &Service{
		db:           db,
		tickets:      tickets,
		refunds:      refunds,
		reservations: reservations,
		financial:    financial,
		logger:       logger,
	}
}

// RequestRefund opens a refund for one ticket. Visitors may only refund their
// own tickets; admins may refund any. An admin request completes immediately:
// record Completed, ticket Refunded and the expense ledger entry all commit
// together. A visitor request stays Pending for staff review.
func (s *Service) RequestRefund(ctx context.Context, req ports.RequestRefundRequest) (*ports.RefundResult, error) {
	start := time.Now()

	ticket, err := s.tickets.GetByID(ctx, nil, req.TicketID)
	if err != nil {
		return nil, err
	}
	if !req.IsAdminRequest && !ticket.IsOwnedBy(req.RequestedBy) {
		observability.RecordRefund("request", "rejected", time.Since(start).Seconds())
		return nil, domain.ErrForbidden.WithDetail("ticket_id", ticket.ID.String())
	}
	if !ticket.CanBeRefunded() {
		observability.RecordRefund("request", "conflict", time.Since(start).Seconds())
		return nil, domain.NewDomainError(domain.ErrorCodeTicketNotRefundable,
			fmt.Sprintf("ticket %s is %s and cannot be refunded", ticket.SerialNumber, ticket.Status)).
			WithDetail("ticket_id", ticket.ID.String())
	}

	existing, err := s.refunds.GetByTicketID(ctx, nil, req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("check existing refund: %w", err)
	}
	if existing != nil {
		observability.RecordRefund("request", "conflict", time.Since(start).Seconds())
		return nil, domain.NewDomainError(domain.ErrorCodeRefundAlreadyExists,
			fmt.Sprintf("a refund for ticket %s was already requested on %s (status %s)",
				ticket.SerialNumber, existing.RequestedAt.Format("2006-01-02"), existing.Status)).
			WithDetail("refund_id", existing.ID.String())
	}

	amount, err := s.refundAmount(ctx, ticket)
	if err != nil {
		return nil, err
	}

	record := &domain.RefundRecord{
		ID:          uuid.New(),
		TicketID:    ticket.ID,
		Amount:      amount,
		Reason:      req.Reason,
		Status:      domain.RefundStatusPending,
		RequestedBy: req.RequestedBy,
		RequestedAt: timeutil.Now(),
	}

	if req.IsAdminRequest {
		record.Status = domain.RefundStatusCompleted
		processorID := req.ProcessorID
		record.ProcessorID = &processorID
		now := timeutil.Now()
		record.ProcessedAt = &now

		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if err := s.refunds.Create(ctx, tx, record); err != nil {
				return fmt.Errorf("create refund record: %w", err)
			}
			return s.settle(ctx, tx, record, ticket)
		})
		if err != nil {
			observability.RecordRefund("request", "failed", time.Since(start).Seconds())
			s.logger.Error("admin refund failed",
				ports.String("ticket_id", ticket.ID.String()),
				ports.Err(err))
			return nil, err
		}

		observability.RecordRefund("request", "completed", time.Since(start).Seconds())
		refunded, _ := amount.Float64()
		observability.RecordRefundedAmount(refunded)
		s.logger.Info("admin refund completed",
			ports.String("refund_id", record.ID.String()),
			ports.String("ticket_id", ticket.ID.String()),
			ports.String("amount", amount.String()))

		return &ports.RefundResult{
			Record:  record,
			Message: fmt.Sprintf("refund of %s completed", amount),
		}, nil
	}

	if err := s.refunds.Create(ctx, nil, record); err != nil {
		observability.RecordRefund("request", "failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("create refund record: %w", err)
	}

	observability.RecordRefund("request", "pending", time.Since(start).Seconds())
	s.logger.Info("refund requested",
		ports.String("refund_id", record.ID.String()),
		ports.String("ticket_id", ticket.ID.String()),
		ports.String("amount", amount.String()))

	return &ports.RefundResult{
		Record:  record,
		Message: "refund request submitted for review",
	}, nil
}

// ProcessRefund applies a staff decision to a pending record. Approval
// completes the refund with ticket rollback and the expense entry in one
// transaction; rejection closes the record with no financial or ticket change.
func (s *Service) ProcessRefund(ctx context.Context, req ports.ProcessRefundRequest) (*ports.RefundResult, error) {
	start := time.Now()

	record, err := s.refunds.GetByID(ctx, nil, req.RefundID)
	if err != nil {
		return nil, err
	}
	if !record.CanBeProcessed() {
		observability.RecordRefund("process", "conflict", time.Since(start).Seconds())
		return nil, domain.ErrRefundAlreadyProcessed.WithDetail("status", string(record.Status))
	}

	now := timeutil.Now()

	switch req.Decision {
	case domain.RefundDecisionApprove:
		ticket, err := s.tickets.GetByID(ctx, nil, record.TicketID)
		if err != nil {
			return nil, err
		}
		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if err := s.refunds.UpdateStatus(ctx, tx, record.ID,
				domain.RefundStatusCompleted, req.ProcessorID, req.Notes, now); err != nil {
				return fmt.Errorf("update refund status: %w", err)
			}
			return s.settle(ctx, tx, record, ticket)
		})
		if err != nil {
			observability.RecordRefund("process", "failed", time.Since(start).Seconds())
			s.logger.Error("refund approval failed",
				ports.String("refund_id", record.ID.String()),
				ports.Err(err))
			return nil, err
		}

		record.Status = domain.RefundStatusCompleted
		observability.RecordRefund("process", "approved", time.Since(start).Seconds())
		refunded, _ := record.Amount.Float64()
		observability.RecordRefundedAmount(refunded)

	case domain.RefundDecisionReject:
		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return s.refunds.UpdateStatus(ctx, tx, record.ID,
				domain.RefundStatusRejected, req.ProcessorID, req.Notes, now)
		})
		if err != nil {
			observability.RecordRefund("process", "failed", time.Since(start).Seconds())
			return nil, fmt.Errorf("reject refund: %w", err)
		}
		record.Status = domain.RefundStatusRejected
		observability.RecordRefund("process", "rejected", time.Since(start).Seconds())

	default:
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed,
			fmt.Sprintf("unknown refund decision %q", req.Decision))
	}

	processorID := req.ProcessorID
	record.ProcessorID = &processorID
	record.Notes = req.Notes
	record.ProcessedAt = &now

	s.logger.Info("refund processed",
		ports.String("refund_id", record.ID.String()),
		ports.String("decision", string(req.Decision)))

	return &ports.RefundResult{
		Record:  record,
		Message: fmt.Sprintf("refund %s", record.Status),
	}, nil
}

// BatchRefund runs the admin-request path per ticket, isolating each
// ticket's outcome: one failure never aborts the rest, and every individual
// refund remains atomic.
func (s *Service) BatchRefund(ctx context.Context, req ports.BatchRefundRequest) (*ports.BatchRefundResult, error) {
	if len(req.TicketIDs) == 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "batch refund requires at least one ticket")
	}

	result := &ports.BatchRefundResult{TotalRefunded: decimal.Zero}
	for _, ticketID := range req.TicketIDs {
		single, err := s.RequestRefund(ctx, ports.RequestRefundRequest{
			TicketID:       ticketID,
			RequestedBy:    req.ProcessorID,
			Reason:         req.Reason,
			IsAdminRequest: true,
			ProcessorID:    req.ProcessorID,
		})
		item := ports.BatchRefundItemResult{TicketID: ticketID}
		if err != nil {
			item.Message = err.Error()
			result.Failed++
			observability.RecordRefund("batch_item", "failed", 0)
		} else {
			item.Success = true
			item.Message = single.Message
			item.Amount = single.Record.Amount
			result.Succeeded++
			result.TotalRefunded = result.TotalRefunded.Add(single.Record.Amount)
			observability.RecordRefund("batch_item", "completed", 0)
		}
		result.Results = append(result.Results, item)
	}

	s.logger.Info("batch refund finished",
		ports.Int("succeeded", result.Succeeded),
		ports.Int("failed", result.Failed),
		ports.String("total_refunded", result.TotalRefunded.String()))

	return result, nil
}

// GetByTicket retrieves the refund record of a ticket
func (s *Service) GetByTicket(ctx context.Context, ticketID uuid.UUID) (*domain.RefundRecord, error) {
	record, err := s.refunds.GetByTicketID(ctx, nil, ticketID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRefundNotFound.WithDetail("ticket_id", ticketID.String())
	}
	return record, nil
}

// refundAmount returns the price actually paid for the ticket's unit: the
// reservation item's unit price net of its per-unit discount at purchase time.
func (s *Service) refundAmount(ctx context.Context, ticket *domain.Ticket) (decimal.Decimal, error) {
	item, err := s.reservations.GetItemByID(ctx, nil, ticket.ReservationItemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load reservation item: %w", err)
	}
	return item.PaidUnitPrice(), nil
}

// settle flips the ticket to Refunded, appends the compensating expense
// entry, and marks the reservation's payment Refunded once its last ticket
// is refunded. Runs inside the caller's transaction.
func (s *Service) settle(ctx context.Context, tx ports.DBTX, record *domain.RefundRecord, ticket *domain.Ticket) error {
	if err := s.tickets.UpdateStatus(ctx, tx, ticket.ID, domain.TicketStatusRefunded); err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}

	refID := record.ID
	expense := &domain.FinancialRecord{
		ID:              uuid.New(),
		Type:            domain.FinancialTypeExpense,
		Amount:          record.Amount,
		TransactionDate: timeutil.Now(),
		Description:     fmt.Sprintf("ticket refund, serial %s", ticket.SerialNumber),
		ResponsibleID:   record.ProcessorID,
		ReferenceID:     &refID,
	}
	if err := s.financial.Append(ctx, tx, expense); err != nil {
		return fmt.Errorf("append expense record: %w", err)
	}

	item, err := s.reservations.GetItemByID(ctx, tx, ticket.ReservationItemID)
	if err != nil {
		return fmt.Errorf("load reservation item: %w", err)
	}
	siblings, err := s.tickets.ListByReservation(ctx, tx, item.ReservationID)
	if err != nil {
		return fmt.Errorf("list reservation tickets: %w", err)
	}
	for _, t := range siblings {
		if t.ID != ticket.ID && t.Status != domain.TicketStatusRefunded {
			return nil
		}
	}

	if err := s.reservations.MarkRefunded(ctx, tx, item.ReservationID); err != nil {
		return fmt.Errorf("mark reservation refunded: %w", err)
	}
	return nil
}

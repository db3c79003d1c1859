// Package reservation orchestrates per-item pricing, promotion application
// and the reservation/payment state machine, and issues tickets once payment
// is recorded.
package reservation

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

// Service implements ports.ReservationService
type Service struct {
	db           ports.DBPort
	ticketTypes  ports.TicketTypeRepository
	reservations ports.ReservationRepository
	tickets      ports.TicketRepository
	financial    ports.FinancialRepository
	promotions   ports.PromotionRepository
	resolver     ports.PriceResolver
	evaluator    ports.PromotionEvaluator
	membership   ports.MembershipGateway
	refunds      ports.RefundService
	logger       ports.Logger
}

// NewService creates a new reservation service
func NewService(
	db ports.DBPort,
	ticketTypes ports.TicketTypeRepository,
	reservations ports.ReservationRepository,
	tickets ports.TicketRepository,
	financial ports.FinancialRepository,
	promotions ports.PromotionRepository,
	resolver ports.PriceResolver,
	evaluator ports.PromotionEvaluator,
	membership ports.MembershipGateway,
	refunds ports.RefundService,
	logger ports.Logger,
) *Service {
	return &Service{
		db:           db,
		ticketTypes:  ticketTypes,
		reservations: reservations,
		tickets:      tickets,
		financial:    financial,
		promotions:   promotions,
		resolver:     resolver,
		evaluator:    evaluator,
		membership:   membership,
		refunds:      refunds,
		logger:       logger,
	}
}

// Create validates stock, resolves unit prices, applies promotions and the
// member discount, and persists the reservation with its items in one
// transaction. Nothing is written when any step fails.
func (s *Service) Create(ctx context.Context, req ports.CreateReservationRequest) (*ports.ReservationResult, error) {
	start := time.Now()

	if len(req.Items) == 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "reservation requires at least one item")
	}
	if req.VisitDate.IsZero() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "visit date is required")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, domain.ErrQuantityInvalid.WithDetail("ticket_type_id", item.TicketTypeID.String())
		}
	}

	visitDate := timeutil.StartOfDay(req.VisitDate)

	reservation := &domain.Reservation{
		ID:            uuid.New(),
		VisitorID:     req.VisitorID,
		VisitDate:     visitDate,
		ReservedAt:    timeutil.Now(),
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.ReservationStatusPending,
		PaymentMethod: req.PaymentMethod,
	}

	var applied []ports.AppliedPromotion

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Stock check under the ticket type's row lock, serializing
		// concurrent creates against the same type.
		quotes := make([]ports.PriceQuote, len(req.Items))
		for i, item := range req.Items {
			ticketType, err := s.ticketTypes.GetByIDForUpdate(ctx, tx, item.TicketTypeID)
			if err != nil {
				return err
			}
			if ticketType.HasSaleLimit() {
				sold, err := s.ticketTypes.CountSold(ctx, tx, item.TicketTypeID, visitDate)
				if err != nil {
					return fmt.Errorf("count sold: %w", err)
				}
				if sold+item.Quantity > *ticketType.MaxSaleLimit {
					return domain.NewDomainError(domain.ErrorCodeTicketTypeSoldOut,
						fmt.Sprintf("ticket type %q has %d of %d remaining for the visit date",
							ticketType.Name, ticketType.RemainingStock(sold), *ticketType.MaxSaleLimit)).
						WithDetail("ticket_type_id", item.TicketTypeID.String())
				}
			}

			quote, err := s.resolver.Resolve(ctx, item.TicketTypeID, visitDate, item.Quantity)
			if err != nil {
				return err
			}
			quotes[i] = quote
		}

		cart := ports.Cart{VisitDate: visitDate}
		for i, item := range req.Items {
			cart.Lines = append(cart.Lines, ports.CartLine{
				TicketTypeID: item.TicketTypeID,
				Quantity:     item.Quantity,
				UnitPrice:    quotes[i].UnitPrice,
			})
		}

		visitor := domain.VisitorContext{
			VisitorID:   req.VisitorID,
			VisitorType: req.VisitorType,
			MemberLevel: req.MemberLevel,
		}
		evaluation, err := s.evaluator.Evaluate(ctx, cart, visitor)
		if err != nil {
			return err
		}
		applied = evaluation.Applied
		reservation.PendingPoints = evaluation.GiftPoints
		if len(evaluation.Applied) > 0 {
			promoID := evaluation.Applied[0].PromotionID
			reservation.PromotionID = &promoID
		}

		for i, item := range req.Items {
			reservation.Items = append(reservation.Items, domain.ReservationItem{
				ID:             uuid.New(),
				ReservationID:  reservation.ID,
				TicketTypeID:   item.TicketTypeID,
				Quantity:       item.Quantity,
				UnitPrice:      evaluation.Lines[i].UnitPrice,
				DiscountAmount: evaluation.Lines[i].Discount,
				AppliedRuleID:  quotes[i].AppliedRuleID,
			})
		}
		for _, gift := range evaluation.Gifts {
			reservation.Items = append(reservation.Items, domain.ReservationItem{
				ID:             uuid.New(),
				ReservationID:  reservation.ID,
				TicketTypeID:   gift.TicketTypeID,
				Quantity:       gift.Quantity,
				UnitPrice:      decimal.Zero,
				DiscountAmount: decimal.Zero,
			})
		}

		if err := s.applyMemberDiscount(ctx, reservation, visitor); err != nil {
			return err
		}
		reservation.ComputeTotals()

		if err := s.reservations.Create(ctx, tx, reservation); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		for _, promo := range evaluation.Applied {
			if err := s.promotions.IncrementUsage(ctx, tx, promo.PromotionID, req.VisitorID); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		observability.RecordReservation("create", outcomeOf(err), time.Since(start).Seconds())
		s.logger.Error("reservation create failed",
			ports.String("visitor_id", req.VisitorID.String()),
			ports.Err(err))
		return nil, err
	}

	observability.RecordReservation("create", "success", time.Since(start).Seconds())
	promoName := ""
	for _, p := range applied {
		observability.RecordPromotionApplied(p.Name)
		if promoName == "" {
			promoName = p.Name
		}
	}
	discount, _ := reservation.DiscountAmount.Float64()
	observability.RecordDiscount(promoName, discount)

	s.logger.Info("reservation created",
		ports.String("reservation_id", reservation.ID.String()),
		ports.String("visitor_id", req.VisitorID.String()),
		ports.String("total", reservation.TotalAmount.String()),
		ports.String("discount", reservation.DiscountAmount.String()),
		ports.Int("items", len(reservation.Items)))

	return &ports.ReservationResult{
		Reservation: reservation,
		Message:     "reservation created",
	}, nil
}

// applyMemberDiscount folds the membership multiplier into each line's
// discount so the reservation total stays the sum of line totals.
func (s *Service) applyMemberDiscount(ctx context.Context, reservation *domain.Reservation, visitor domain.VisitorContext) error {
	if visitor.MemberLevel == "" {
		return nil
	}
	multiplier, err := s.membership.DiscountMultiplier(ctx, visitor.VisitorID, visitor.MemberLevel)
	if err != nil {
		return fmt.Errorf("membership discount multiplier: %w", err)
	}
	if multiplier.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil
	}
	keep := decimal.NewFromInt(1).Sub(multiplier)
	for i := range reservation.Items {
		item := &reservation.Items[i]
		gross := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		net := gross.Sub(item.DiscountAmount)
		if net.IsPositive() {
			item.DiscountAmount = item.DiscountAmount.Add(net.Mul(keep).Round(2))
		}
	}
	return nil
}

// Pay records payment completion: the reservation flips to Paid/Confirmed,
// every unit of every item becomes an issued ticket, and one income ledger
// entry for the total amount is appended, all in one transaction. Gift points
// are awarded to the membership service only after the commit.
func (s *Service) Pay(ctx context.Context, req ports.PayReservationRequest) (*ports.ReservationResult, error) {
	start := time.Now()

	reservation, err := s.reservations.GetByID(ctx, nil, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.CanBePaid() {
		return nil, domain.NewDomainError(domain.ErrorCodeReservationStateConflict,
			fmt.Sprintf("reservation cannot be paid (payment status %s, status %s)",
				reservation.PaymentStatus, reservation.Status)).
			WithDetail("reservation_id", reservation.ID.String())
	}

	issued := issueTickets(reservation, timeutil.Now())

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// The guarded transition decides the race: a concurrent payment of the
		// same reservation fails here before any ticket or ledger write.
		if err := s.reservations.MarkPaid(ctx, tx, reservation.ID, req.PaymentMethod); err != nil {
			return err
		}
		if err := s.tickets.CreateBatch(ctx, tx, issued); err != nil {
			return fmt.Errorf("issue tickets: %w", err)
		}

		refID := reservation.ID
		record := &domain.FinancialRecord{
			ID:              uuid.New(),
			Type:            domain.FinancialTypeIncome,
			Amount:          reservation.TotalAmount,
			TransactionDate: timeutil.Now(),
			Description:     fmt.Sprintf("ticket sale, reservation %s", reservation.ID),
			ResponsibleID:   &reservation.VisitorID,
			ReferenceID:     &refID,
		}
		if err := s.financial.Append(ctx, tx, record); err != nil {
			return fmt.Errorf("append income record: %w", err)
		}
		return nil
	})

	if err != nil {
		observability.RecordReservation("pay", outcomeOf(err), time.Since(start).Seconds())
		s.logger.Error("reservation payment failed",
			ports.String("reservation_id", reservation.ID.String()),
			ports.Err(err))
		return nil, err
	}

	reservation.Status = domain.ReservationStatusConfirmed
	reservation.PaymentStatus = domain.PaymentStatusPaid
	if req.PaymentMethod != "" {
		reservation.PaymentMethod = req.PaymentMethod
	}

	observability.RecordReservation("pay", "success", time.Since(start).Seconds())
	revenue, _ := reservation.TotalAmount.Float64()
	observability.RecordRevenue(reservation.PaymentMethod, revenue)
	perType := map[uuid.UUID]int{}
	for _, item := range reservation.Items {
		perType[item.TicketTypeID] += int(item.Quantity)
	}
	for id, count := range perType {
		observability.RecordTicketsIssued(id.String(), count)
	}

	// Point awards run outside the transaction: a membership outage must not
	// fail an already-recorded payment.
	if reservation.PendingPoints > 0 {
		if err := s.membership.AwardPoints(ctx, reservation.VisitorID, reservation.PendingPoints); err != nil {
			observability.RecordPointAward("failed")
			s.logger.Warn("gift point award failed",
				ports.String("reservation_id", reservation.ID.String()),
				ports.Int("points", int(reservation.PendingPoints)),
				ports.Err(err))
		} else {
			observability.RecordPointAward("published")
		}
	}

	s.logger.Info("reservation paid",
		ports.String("reservation_id", reservation.ID.String()),
		ports.String("amount", reservation.TotalAmount.String()),
		ports.Int("tickets_issued", len(issued)))

	return &ports.ReservationResult{
		Reservation: reservation,
		Tickets:     issued,
		Message:     fmt.Sprintf("payment recorded, %d tickets issued", len(issued)),
	}, nil
}

// Cancel rejects terminal reservations. A paid reservation cascades through
// the refund workflow ticket by ticket before flipping to Cancelled; an
// unpaid one cancels immediately with no financial trace.
func (s *Service) Cancel(ctx context.Context, req ports.CancelReservationRequest) (*ports.ReservationResult, error) {
	start := time.Now()

	reservation, err := s.reservations.GetByID(ctx, nil, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.CanBeCancelled() {
		return nil, domain.NewDomainError(domain.ErrorCodeReservationStateConflict,
			fmt.Sprintf("reservation is already %s", reservation.Status)).
			WithDetail("reservation_id", reservation.ID.String())
	}

	message := "reservation cancelled"
	paymentStatus := reservation.PaymentStatus

	if reservation.IsPaid() {
		issued, err := s.tickets.ListByReservation(ctx, nil, reservation.ID)
		if err != nil {
			return nil, fmt.Errorf("list reservation tickets: %w", err)
		}
		var refundable []uuid.UUID
		for _, t := range issued {
			if t.CanBeRefunded() {
				refundable = append(refundable, t.ID)
			}
		}
		if len(refundable) > 0 {
			batch, err := s.refunds.BatchRefund(ctx, ports.BatchRefundRequest{
				TicketIDs:   refundable,
				Reason:      req.Reason,
				ProcessorID: req.ProcessorID,
			})
			if err != nil {
				return nil, err
			}
			message = fmt.Sprintf("reservation cancelled, %d of %d tickets refunded (%s)",
				batch.Succeeded, len(refundable), batch.TotalRefunded)
		}
		paymentStatus = domain.PaymentStatusRefunded
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.reservations.MarkCancelled(ctx, tx, reservation.ID, paymentStatus)
	})
	if err != nil {
		observability.RecordReservation("cancel", outcomeOf(err), time.Since(start).Seconds())
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	reservation.Status = domain.ReservationStatusCancelled
	reservation.PaymentStatus = paymentStatus

	observability.RecordReservation("cancel", "success", time.Since(start).Seconds())
	s.logger.Info("reservation cancelled",
		ports.String("reservation_id", reservation.ID.String()),
		ports.String("payment_status", string(paymentStatus)))

	return &ports.ReservationResult{Reservation: reservation, Message: message}, nil
}

// Get retrieves a reservation with its items
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.reservations.GetByID(ctx, nil, id)
}

// outcomeOf maps an error to a metric outcome label
func outcomeOf(err error) string {
	if domain.IsConflictError(err) || domain.IsValidationError(err) ||
		domain.IsNotFoundError(err) || domain.IsForbiddenError(err) {
		return "rejected"
	}
	return "failed"
}

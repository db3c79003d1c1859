package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// RefundRepository implements ports.RefundRepository
type RefundRepository struct {
	db ports.DBPort
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db ports.DBPort) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const refundColumns = `id, ticket_id, amount, reason, status, requested_by,
	processor_id, notes, requested_at, processed_at`

// Create inserts a refund record; the unique index on ticket_id rejects a
// second record for the same ticket
func (r *RefundRepository) Create(ctx context.Context, tx ports.DBTX, record *domain.RefundRecord) error {
	amount, err := decimalToNumeric(record.Amount)
	if err != nil {
		return err
	}

	_, err = r.conn(tx).Exec(ctx, `
		INSERT INTO refund_records (id, ticket_id, amount, reason, status,
			requested_by, processor_id, notes, requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.TicketID, amount, record.Reason, string(record.Status),
		record.RequestedBy, nullUUID(record.ProcessorID), nullText(record.Notes),
		record.RequestedAt, nullTimestamptz(record.ProcessedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRefundAlreadyExists.WithDetail("ticket_id", record.TicketID.String())
		}
		return fmt.Errorf("insert refund record: %w", err)
	}
	return nil
}

// GetByID retrieves a refund record by its ID
func (r *RefundRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.RefundRecord, error) {
	row := r.conn(db).QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refund_records WHERE id = $1`, id)

	record, err := scanRefundRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRefundNotFound.WithDetail("refund_id", id.String())
	}
	return record, err
}

// GetByTicketID retrieves the refund record of a ticket; returns nil without
// error when the ticket has none
func (r *RefundRepository) GetByTicketID(ctx context.Context, db ports.DBTX, ticketID uuid.UUID) (*domain.RefundRecord, error) {
	row := r.conn(db).QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refund_records WHERE ticket_id = $1`, ticketID)

	record, err := scanRefundRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// UpdateStatus applies a state transition with processor attribution. The
// status guard lets concurrent decisions race on the row: only one caller
// transitions the record. Zero rows means it was decided concurrently; a
// missing id surfaces earlier as not found, the service loads the record
// before deciding.
func (r *RefundRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id uuid.UUID, status domain.RefundStatus, processorID uuid.UUID, notes string, processedAt time.Time) error {
	tag, err := r.conn(tx).Exec(ctx, `
		UPDATE refund_records
		SET status = $2, processor_id = $3, notes = $4, processed_at = $5
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), processorID, nullText(notes), processedAt)
	if err != nil {
		return fmt.Errorf("update refund status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRefundAlreadyProcessed.WithDetail("refund_id", id.String())
	}
	return nil
}

func scanRefundRecord(row pgx.Row) (*domain.RefundRecord, error) {
	var (
		record      domain.RefundRecord
		amount      pgtype.Numeric
		processorID pgtype.UUID
		notes       pgtype.Text
		processedAt pgtype.Timestamptz
	)
	err := row.Scan(&record.ID, &record.TicketID, &amount, &record.Reason,
		&record.Status, &record.RequestedBy, &processorID, &notes,
		&record.RequestedAt, &processedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan refund record: %w", err)
	}

	record.Amount, err = pgNumericToDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("convert refund amount: %w", err)
	}
	record.ProcessorID = uuidPtr(processorID)
	record.Notes = notes.String
	record.ProcessedAt = timePtr(processedAt)
	return &record, nil
}

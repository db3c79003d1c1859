package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// TicketRepository implements ports.TicketRepository
type TicketRepository struct {
	db ports.DBPort
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db ports.DBPort) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const ticketColumns = `id, serial_number, reservation_item_id, visitor_id,
	valid_from, valid_until, status, issued_at, updated_at`

// CreateBatch inserts all tickets issued for one payment
func (r *TicketRepository) CreateBatch(ctx context.Context, tx ports.DBTX, tickets []*domain.Ticket) error {
	c := r.conn(tx)
	for _, t := range tickets {
		_, err := c.Exec(ctx, `
			INSERT INTO tickets (id, serial_number, reservation_item_id,
				visitor_id, valid_from, valid_until, status, issued_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			t.ID, t.SerialNumber, t.ReservationItemID, nullUUID(t.VisitorID),
			t.ValidFrom, t.ValidUntil, string(t.Status), t.IssuedAt)
		if err != nil {
			return fmt.Errorf("insert ticket %s: %w", t.SerialNumber, err)
		}
	}
	return nil
}

// GetByID retrieves a ticket by its ID
func (r *TicketRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Ticket, error) {
	row := r.conn(db).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)

	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound.WithDetail("ticket_id", id.String())
	}
	return t, err
}

// UpdateStatus updates a ticket's status
func (r *TicketRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id uuid.UUID, status domain.TicketStatus) error {
	tag, err := r.conn(tx).Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound.WithDetail("ticket_id", id.String())
	}
	return nil
}

// ListByReservation returns every ticket issued for the reservation
func (r *TicketRepository) ListByReservation(ctx context.Context, db ports.DBTX, reservationID uuid.UUID) ([]*domain.Ticket, error) {
	rows, err := r.conn(db).Query(ctx, `
		SELECT t.id, t.serial_number, t.reservation_item_id, t.visitor_id,
		       t.valid_from, t.valid_until, t.status, t.issued_at, t.updated_at
		FROM tickets t
		JOIN reservation_items ri ON ri.id = t.reservation_item_id
		WHERE ri.reservation_id = $1
		ORDER BY t.serial_number`,
		reservationID)
	if err != nil {
		return nil, fmt.Errorf("list tickets by reservation: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t         domain.Ticket
		visitorID pgtype.UUID
	)
	err := row.Scan(&t.ID, &t.SerialNumber, &t.ReservationItemID, &visitorID,
		&t.ValidFrom, &t.ValidUntil, &t.Status, &t.IssuedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	t.VisitorID = uuidPtr(visitorID)
	return &t, nil
}

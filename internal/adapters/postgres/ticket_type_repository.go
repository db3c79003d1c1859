package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// TicketTypeRepository implements ports.TicketTypeRepository
type TicketTypeRepository struct {
	db ports.DBPort
}

// NewTicketTypeRepository creates a new ticket type repository
func NewTicketTypeRepository(db ports.DBPort) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

func (r *TicketTypeRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const ticketTypeColumns = `id, name, base_price, max_sale_limit, eligibility, created_at, updated_at`

// GetByID retrieves a ticket type by its ID
func (r *TicketTypeRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.TicketType, error) {
	row := r.conn(db).QueryRow(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id)
	return scanTicketType(row)
}

// GetByIDForUpdate retrieves a ticket type holding a row lock until the
// surrounding transaction ends
func (r *TicketTypeRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.TicketType, error) {
	row := r.conn(tx).QueryRow(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1 FOR UPDATE`, id)
	return scanTicketType(row)
}

// CountSold returns how many ticket units are already committed for the type
// on the visit date; cancelled reservations do not count against the limit
func (r *TicketTypeRepository) CountSold(ctx context.Context, db ports.DBTX, ticketTypeID uuid.UUID, visitDate time.Time) (int32, error) {
	var sold int32
	err := r.conn(db).QueryRow(ctx, `
		SELECT COALESCE(SUM(ri.quantity), 0)
		FROM reservation_items ri
		JOIN reservations res ON res.id = ri.reservation_id
		WHERE ri.ticket_type_id = $1
		  AND res.visit_date = $2
		  AND res.status <> 'cancelled'`,
		ticketTypeID, visitDate).Scan(&sold)
	if err != nil {
		return 0, fmt.Errorf("count sold: %w", err)
	}
	return sold, nil
}

// UpdateBasePrice applies a price correction and its audit row together
func (r *TicketTypeRepository) UpdateBasePrice(ctx context.Context, tx ports.DBTX, id uuid.UUID, newPrice decimal.Decimal, changedBy uuid.UUID) error {
	c := r.conn(tx)

	price, err := decimalToNumeric(newPrice)
	if err != nil {
		return err
	}

	var oldPrice pgtype.Numeric
	err = c.QueryRow(ctx,
		`SELECT base_price FROM ticket_types WHERE id = $1 FOR UPDATE`, id).Scan(&oldPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTicketTypeNotFound.WithDetail("ticket_type_id", id.String())
	}
	if err != nil {
		return fmt.Errorf("lock ticket type: %w", err)
	}

	_, err = c.Exec(ctx,
		`UPDATE ticket_types SET base_price = $2, updated_at = now() WHERE id = $1`,
		id, price)
	if err != nil {
		return fmt.Errorf("update base price: %w", err)
	}

	_, err = c.Exec(ctx,
		`INSERT INTO price_changes (id, ticket_type_id, old_price, new_price, changed_by, changed_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New(), id, oldPrice, price, changedBy)
	if err != nil {
		return fmt.Errorf("insert price change: %w", err)
	}
	return nil
}

// List returns the full catalog ordered by name
func (r *TicketTypeRepository) List(ctx context.Context, db ports.DBTX) ([]*domain.TicketType, error) {
	rows, err := r.conn(db).Query(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var types []*domain.TicketType
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func scanTicketType(row pgx.Row) (*domain.TicketType, error) {
	var (
		t        domain.TicketType
		price    pgtype.Numeric
		maxLimit pgtype.Int4
	)
	err := row.Scan(&t.ID, &t.Name, &price, &maxLimit, &t.Eligibility, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket type: %w", err)
	}

	t.BasePrice, err = pgNumericToDecimal(price)
	if err != nil {
		return nil, fmt.Errorf("convert base price: %w", err)
	}
	t.MaxSaleLimit = int4Ptr(maxLimit)
	return &t, nil
}

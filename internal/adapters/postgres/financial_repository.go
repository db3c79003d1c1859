package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// FinancialRepository implements ports.FinancialRepository.
// The ledger is append-only; no update or delete statements exist here.
type FinancialRepository struct {
	db ports.DBPort
}

// NewFinancialRepository creates a new financial repository
func NewFinancialRepository(db ports.DBPort) *FinancialRepository {
	return &FinancialRepository{db: db}
}

func (r *FinancialRepository) conn(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// Append inserts a ledger entry
func (r *FinancialRepository) Append(ctx context.Context, tx ports.DBTX, record *domain.FinancialRecord) error {
	amount, err := decimalToNumeric(record.Amount)
	if err != nil {
		return err
	}

	_, err = r.conn(tx).Exec(ctx, `
		INSERT INTO financial_records (id, type, amount, transaction_date,
			description, responsible_id, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		record.ID, string(record.Type), amount, record.TransactionDate,
		record.Description, nullUUID(record.ResponsibleID), nullUUID(record.ReferenceID))
	if err != nil {
		return fmt.Errorf("insert financial record: %w", err)
	}
	return nil
}

// ListByDateRange returns ledger entries with transaction dates in [from, to)
func (r *FinancialRepository) ListByDateRange(ctx context.Context, db ports.DBTX, from, to time.Time) ([]*domain.FinancialRecord, error) {
	rows, err := r.conn(db).Query(ctx, `
		SELECT id, type, amount, transaction_date, description,
		       responsible_id, reference_id, created_at
		FROM financial_records
		WHERE transaction_date >= $1 AND transaction_date < $2
		ORDER BY transaction_date`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list financial records: %w", err)
	}
	defer rows.Close()

	var records []*domain.FinancialRecord
	for rows.Next() {
		var (
			record        domain.FinancialRecord
			amount        pgtype.Numeric
			responsibleID pgtype.UUID
			referenceID   pgtype.UUID
		)
		err := rows.Scan(&record.ID, &record.Type, &amount, &record.TransactionDate,
			&record.Description, &responsibleID, &referenceID, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan financial record: %w", err)
		}
		record.Amount, err = pgNumericToDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("convert amount: %w", err)
		}
		record.ResponsibleID = uuidPtr(responsibleID)
		record.ReferenceID = uuidPtr(referenceID)
		records = append(records, &record)
	}
	return records, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
)

// AuditRepository persists the audit log mirror. Rows are written in
// the same transaction as the entry mutation they describe, so a
// committed POST or VOID always has its row.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// CreateTx inserts an audit row inside the caller's transaction.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var detailsJSON []byte
	if log.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(log.Details)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (id, entry_number, action, performed_by, request_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.(*Tx).PgxTx().Exec(ctx, query,
		log.ID,
		log.EntryNumber,
		log.Action,
		log.PerformedBy,
		log.RequestID,
		detailsJSON,
		log.CreatedAt,
	)
	return err
}

// GetByEntry retrieves all audit rows for an entry, oldest first.
func (r *AuditRepository) GetByEntry(ctx context.Context, entryNumber string) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, entry_number, action, performed_by, request_id, details, created_at
		FROM audit_logs
		WHERE entry_number = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, entryNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log         domain.AuditLog
			detailsJSON []byte
		)
		err := rows.Scan(
			&log.ID,
			&log.EntryNumber,
			&log.Action,
			&log.PerformedBy,
			&log.RequestID,
			&detailsJSON,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if detailsJSON != nil {
			_ = json.Unmarshal(detailsJSON, &log.Details)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

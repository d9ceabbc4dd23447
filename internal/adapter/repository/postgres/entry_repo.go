package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/chainledger/internal/domain"
	"github.com/iho/chainledger/internal/usecase"
)

const pgErrUniqueViolation = "23505"

const entryColumns = `
	entry_number, date, description, reference, lines,
	status, chain_position, prev_hash, hash, immutable_hash,
	posted_by, posted_at, voided_by, voided_at, void_reason,
	audit_trail, version, created_at, updated_at
`

// EntryRepository implements usecase.EntryRepository. Journal lines
// and the embedded audit trail are stored as JSONB; amounts inside
// them are decimal strings, never floats.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.JournalEntry) error {
	linesJSON, trailJSON, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.pool.Exec(ctx, query,
		entry.EntryNumber,
		entry.Date,
		entry.Description,
		entry.Reference,
		linesJSON,
		entry.Status,
		chainPositionArg(entry),
		entry.PrevHash,
		entry.Hash,
		entry.ImmutableHash,
		entry.PostedBy,
		entry.PostedAt,
		entry.VoidedBy,
		entry.VoidedAt,
		entry.VoidReason,
		trailJSON,
		entry.Version,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return domain.ErrDuplicateEntryNumber
	}
	return err
}

func (r *EntryRepository) Update(ctx context.Context, entry *domain.JournalEntry, expectedVersion int64) error {
	return r.update(ctx, r.pool, entry, expectedVersion)
}

func (r *EntryRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry, expectedVersion int64) error {
	return r.update(ctx, tx.(*Tx).PgxTx(), entry, expectedVersion)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// update applies an optimistic write: the row must still be at
// expectedVersion or no row matches and the caller gets
// ErrVersionConflict.
func (r *EntryRepository) update(ctx context.Context, db execer, entry *domain.JournalEntry, expectedVersion int64) error {
	linesJSON, trailJSON, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	query := `
		UPDATE journal_entries SET
			date = $2, description = $3, reference = $4, lines = $5,
			status = $6, chain_position = $7, prev_hash = $8, hash = $9,
			immutable_hash = $10, posted_by = $11, posted_at = $12,
			voided_by = $13, voided_at = $14, void_reason = $15,
			audit_trail = $16, version = $17, updated_at = $18
		WHERE entry_number = $1 AND version = $19
	`

	tag, err := db.Exec(ctx, query,
		entry.EntryNumber,
		entry.Date,
		entry.Description,
		entry.Reference,
		linesJSON,
		entry.Status,
		chainPositionArg(entry),
		entry.PrevHash,
		entry.Hash,
		entry.ImmutableHash,
		entry.PostedBy,
		entry.PostedAt,
		entry.VoidedBy,
		entry.VoidedAt,
		entry.VoidReason,
		trailJSON,
		entry.Version,
		entry.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		// A position collision means another transaction claimed the
		// chain tip first; the posting loop re-reads the tip and
		// retries, so surface it as contention rather than a raw
		// constraint error. Deadlocks and serialization failures are
		// the same story.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation &&
			pgErr.ConstraintName == "journal_entries_chain_position_key" {
			return domain.ErrChainContention
		}
		if isRetryableError(err) {
			return domain.ErrChainContention
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE entry_number = $1)`, entry.EntryNumber).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrEntryNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *EntryRepository) GetByNumber(ctx context.Context, entryNumber string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_number = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, entryNumber))
}

func (r *EntryRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, entryNumber string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_number = $1 FOR UPDATE`
	return scanEntry(tx.(*Tx).PgxTx().QueryRow(ctx, query, entryNumber))
}

func (r *EntryRepository) GetByHash(ctx context.Context, hash string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE hash = $1 AND status <> 'draft'`
	return scanEntry(r.pool.QueryRow(ctx, query, hash))
}

// GetChainTipForUpdate locks and returns the highest-positioned entry
// on the chain. Returns (nil, nil) on an empty chain so the caller can
// anchor the first entry at genesis.
func (r *EntryRepository) GetChainTipForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.JournalEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE chain_position IS NOT NULL
		ORDER BY chain_position DESC
		LIMIT 1
		FOR UPDATE
	`
	entry, err := scanEntry(tx.(*Tx).PgxTx().QueryRow(ctx, query))
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, nil
	}
	return entry, err
}

func (r *EntryRepository) ListPostedByPosition(ctx context.Context, fromPosition int64, limit int) ([]*domain.JournalEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE chain_position >= $1
		ORDER BY chain_position ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, fromPosition, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *EntryRepository) List(ctx context.Context, filter usecase.EntryFilter) ([]*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(` AND date < $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC`

	args = append(args, filter.Limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PostedBalance sums the posted lines that reference the account.
// Voided entries keep their content but no longer count.
func (r *EntryRepository) PostedBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error) {
	query := `
		SELECT
			COALESCE(SUM((line->>'Debit')::numeric), 0)::text,
			COALESCE(SUM((line->>'Credit')::numeric), 0)::text
		FROM journal_entries, jsonb_array_elements(lines) AS line
		WHERE status = $1 AND line->>'AccountID' = $2
	`

	var debitsText, creditsText string
	if err := r.pool.QueryRow(ctx, query, domain.StatusPosted, accountID).Scan(&debitsText, &creditsText); err != nil {
		return nil, err
	}

	debits, err := decimal.NewFromString(debitsText)
	if err != nil {
		return nil, fmt.Errorf("decoding debit total for %s: %w", accountID, err)
	}
	credits, err := decimal.NewFromString(creditsText)
	if err != nil {
		return nil, fmt.Errorf("decoding credit total for %s: %w", accountID, err)
	}

	return &domain.AccountBalance{
		AccountID: accountID,
		Debits:    debits,
		Credits:   credits,
		Net:       debits.Sub(credits),
	}, nil
}

func scanEntry(row rowScanner) (*domain.JournalEntry, error) {
	var (
		entry         domain.JournalEntry
		linesJSON     []byte
		trailJSON     []byte
		chainPosition *int64
	)

	err := row.Scan(
		&entry.EntryNumber,
		&entry.Date,
		&entry.Description,
		&entry.Reference,
		&linesJSON,
		&entry.Status,
		&chainPosition,
		&entry.PrevHash,
		&entry.Hash,
		&entry.ImmutableHash,
		&entry.PostedBy,
		&entry.PostedAt,
		&entry.VoidedBy,
		&entry.VoidedAt,
		&entry.VoidReason,
		&trailJSON,
		&entry.Version,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	if chainPosition != nil {
		entry.ChainPosition = *chainPosition
	}
	if err := json.Unmarshal(linesJSON, &entry.Lines); err != nil {
		return nil, fmt.Errorf("decoding lines for %s: %w", entry.EntryNumber, err)
	}
	if len(trailJSON) > 0 {
		if err := json.Unmarshal(trailJSON, &entry.AuditTrail); err != nil {
			return nil, fmt.Errorf("decoding audit trail for %s: %w", entry.EntryNumber, err)
		}
	}

	return &entry, nil
}

func marshalEntryJSON(entry *domain.JournalEntry) (lines, trail []byte, err error) {
	lines, err = json.Marshal(entry.Lines)
	if err != nil {
		return nil, nil, err
	}
	trail, err = json.Marshal(entry.AuditTrail)
	if err != nil {
		return nil, nil, err
	}
	return lines, trail, nil
}

// chainPositionArg maps a draft's unassigned position to NULL so the
// unique index on chain_position only covers entries on the chain.
func chainPositionArg(entry *domain.JournalEntry) *int64 {
	if entry.Status == domain.StatusDraft {
		return nil
	}
	pos := entry.ChainPosition
	return &pos
}

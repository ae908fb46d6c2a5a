package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
)

type LedgerRepo struct {
	DB DBTX
}

const createEntry = `-- name: CreateEntry
INSERT INTO ledger_entries (id, recorded_at, request_id, account_id, kind, amount, balance_after, version_after)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, recorded_at, request_id, account_id, kind, amount, balance_after, version_after
`

func (r *LedgerRepo) CreateEntry(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	entryID := uuid.New()
	if entry.ID != uuid.Nil {
		entryID = entry.ID
	}
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createEntry,
		entryID, recordedAt, entry.RequestID, entry.AccountID,
		entry.Kind, entry.Amount, entry.BalanceAfter, entry.VersionAfter,
	)
	created, err := pgx.CollectOneRow(rows, rowToEntry)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrEntryAlreadyExists
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

func (r *LedgerRepo) GetEntryByRequest(ctx context.Context, requestID uuid.UUID) (models.LedgerEntry, error) {
	const getEntry = `
	SELECT id, recorded_at, request_id, account_id, kind, amount, balance_after, version_after
	FROM ledger_entries
	WHERE request_id = $1
	`

	rows, _ := r.DB.Query(ctx, getEntry, requestID)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

func (r *LedgerRepo) ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	const listEntries = `
	SELECT id, recorded_at, request_id, account_id, kind, amount, balance_after, version_after
	FROM ledger_entries
	WHERE account_id = $1
	ORDER BY recorded_at DESC
	LIMIT $2
	`

	rows, _ := r.DB.Query(ctx, listEntries, accountID, limit)
	entries, err := pgx.CollectRows(rows, rowToEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToEntry(row pgx.CollectableRow) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.RecordedAt, &e.RequestID, &e.AccountID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.VersionAfter)
	return e, err
}

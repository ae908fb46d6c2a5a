package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

type RequestRepo struct {
	DB DBTX
}

const requestColumns = `id, created_at, account_id, kind, amount, payment_method, full_name,
bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token`

// Create request unless the idempotency token was used for that account already.
// If it was, return the existing row untouched.
const createRequest = `-- name: CreateRequest
WITH insert_request AS (
	INSERT INTO transaction_requests
		(id, created_at, account_id, kind, amount, payment_method, full_name,
		 bank_account, proof_uri, status, idempotency_token)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (account_id, idempotency_token) DO NOTHING
	RETURNING id, created_at, account_id, kind, amount, payment_method, full_name,
		bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
)
SELECT * FROM insert_request
UNION
SELECT id, created_at, account_id, kind, amount, payment_method, full_name,
	bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
FROM transaction_requests
WHERE account_id = $3 AND idempotency_token = $11
`

func (r *RequestRepo) CreateRequest(ctx context.Context, request models.TransactionRequest) (models.TransactionRequest, bool, error) {
	requestID := uuid.New()
	if request.ID != uuid.Nil {
		requestID = request.ID
	}
	createdAt := request.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createRequest,
		requestID,
		createdAt,
		request.AccountID,
		request.Kind,
		request.Amount,
		request.PaymentMethod,
		request.FullName,
		request.BankAccount,
		request.ProofURI,
		models.RequestStatusPending,
		request.IdempotencyToken,
	)
	created, err := pgx.CollectOneRow(rows, rowToRequest)
	if err != nil {
		return created, false, fmt.Errorf("db error: %w", err)
	}

	return created, created.ID == requestID, nil
}

func (r *RequestRepo) GetRequest(ctx context.Context, requestID uuid.UUID) (models.TransactionRequest, error) {
	getRequest := fmt.Sprintf(`SELECT %s FROM transaction_requests WHERE id = $1`, requestColumns)

	rows, _ := r.DB.Query(ctx, getRequest, requestID)
	return collectRequest(rows)
}

const decideRequest = `-- name: DecideRequest
UPDATE transaction_requests
SET status = $2, decided_at = $3, decided_by = $4, reason = $5
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, account_id, kind, amount, payment_method, full_name,
	bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
`

func (r *RequestRepo) Decide(ctx context.Context, requestID uuid.UUID, newStatus string, adminID uuid.UUID, reason *string) (models.TransactionRequest, error) {
	if newStatus != models.RequestStatusApproved && newStatus != models.RequestStatusRejected {
		return models.TransactionRequest{}, apperrors.ErrInvalidTransition
	}

	rows, _ := r.DB.Query(ctx, decideRequest, requestID, newStatus, time.Now(), adminID, reason)
	return r.collectTransitioned(ctx, rows, requestID)
}

const markApplied = `-- name: MarkApplied
UPDATE transaction_requests
SET status = 'applied'
WHERE id = $1 AND status = 'approved'
RETURNING id, created_at, account_id, kind, amount, payment_method, full_name,
	bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
`

func (r *RequestRepo) MarkApplied(ctx context.Context, requestID uuid.UUID) (models.TransactionRequest, error) {
	rows, _ := r.DB.Query(ctx, markApplied, requestID)
	return r.collectTransitioned(ctx, rows, requestID)
}

const markFailed = `-- name: MarkFailed
UPDATE transaction_requests
SET status = 'rejected', reason = $2
WHERE id = $1 AND status = 'approved'
RETURNING id, created_at, account_id, kind, amount, payment_method, full_name,
	bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
`

func (r *RequestRepo) MarkFailed(ctx context.Context, requestID uuid.UUID, reason string) (models.TransactionRequest, error) {
	rows, _ := r.DB.Query(ctx, markFailed, requestID, reason)
	return r.collectTransitioned(ctx, rows, requestID)
}

const cancelRequest = `-- name: CancelRequest
UPDATE transaction_requests
SET status = 'rejected', reason = 'cancelled by submitter', decided_at = $3
WHERE id = $1 AND account_id = $2 AND status = 'pending'
RETURNING id, created_at, account_id, kind, amount, payment_method, full_name,
	bank_account, proof_uri, status, reason, decided_at, decided_by, idempotency_token
`

func (r *RequestRepo) Cancel(ctx context.Context, requestID uuid.UUID, accountID uuid.UUID) (models.TransactionRequest, error) {
	rows, _ := r.DB.Query(ctx, cancelRequest, requestID, accountID, time.Now())
	request, err := pgx.CollectOneRow(rows, rowToRequest)

	switch {
	case err == nil:
		return request, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either unknown id, foreign request or not pending anymore.
		// Don't leak foreign requests: report them as not found.
		existing, getErr := r.GetRequest(ctx, requestID)
		if getErr != nil || existing.AccountID != accountID {
			return request, apperrors.ErrRequestNotFound
		}
		return request, apperrors.ErrInvalidTransition
	default:
		return request, fmt.Errorf("db error: %w", err)
	}
}

func (r *RequestRepo) ListRequests(ctx context.Context, opts repository.ListRequestsOpts) ([]models.TransactionRequest, error) {
	where, args := buildRequestFilters(opts)

	query := fmt.Sprintf(`SELECT %s FROM transaction_requests %s ORDER BY created_at DESC`, requestColumns, where)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, _ := r.DB.Query(ctx, query, args...)
	requests, err := pgx.CollectRows(rows, rowToRequest)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return requests, nil
}

func (r *RequestRepo) CountRequests(ctx context.Context, opts repository.ListRequestsOpts) (int64, error) {
	where, args := buildRequestFilters(opts)

	var count int64
	err := r.DB.QueryRow(ctx, "SELECT count(*) FROM transaction_requests "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

// collectTransitioned maps the empty result of a conditional transition to
// ErrRequestNotFound or ErrInvalidTransition depending on row existence
func (r *RequestRepo) collectTransitioned(ctx context.Context, rows pgx.Rows, requestID uuid.UUID) (models.TransactionRequest, error) {
	request, err := pgx.CollectOneRow(rows, rowToRequest)

	switch {
	case err == nil:
		return request, nil
	case errors.Is(err, pgx.ErrNoRows):
		if _, getErr := r.GetRequest(ctx, requestID); getErr != nil {
			return request, apperrors.ErrRequestNotFound
		}
		return request, apperrors.ErrInvalidTransition
	default:
		return request, fmt.Errorf("db error: %w", err)
	}
}

func buildRequestFilters(opts repository.ListRequestsOpts) (where string, args []any) {
	conditions := make([]string, 0, 4)

	if len(opts.Statuses) > 0 {
		args = append(args, opts.Statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(opts.Kinds) > 0 {
		args = append(args, opts.Kinds)
		conditions = append(conditions, fmt.Sprintf("kind = ANY($%d)", len(args)))
	}
	if opts.AccountID != nil {
		args = append(args, *opts.AccountID)
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if opts.CreatedBefore != nil {
		args = append(args, *opts.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func collectRequest(rows pgx.Rows) (models.TransactionRequest, error) {
	request, err := pgx.CollectOneRow(rows, rowToRequest)

	switch {
	case err == nil:
		return request, nil
	case errors.Is(err, pgx.ErrNoRows):
		return request, apperrors.ErrRequestNotFound
	default:
		return request, fmt.Errorf("db error: %w", err)
	}
}

func rowToRequest(row pgx.CollectableRow) (models.TransactionRequest, error) {
	var tr models.TransactionRequest
	err := row.Scan(
		&tr.ID, &tr.CreatedAt, &tr.AccountID, &tr.Kind, &tr.Amount, &tr.PaymentMethod, &tr.FullName,
		&tr.BankAccount, &tr.ProofURI, &tr.Status, &tr.Reason, &tr.DecidedAt, &tr.DecidedBy, &tr.IdempotencyToken,
	)
	return tr, err
}

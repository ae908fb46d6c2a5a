package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, phone, referral_code, referred_by)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, phone, balance, version, referral_code, referred_by
`

func (r *AccountRepo) CreateAccount(ctx context.Context, params repository.CreateAccountParams) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), params.Phone, params.ReferralCode, params.ReferredBy)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "accounts_phone_key":
				return account, apperrors.ErrAccountAlreadyExists
			case "accounts_referral_code_key":
				return account, apperrors.ErrReferralCodeTaken
			}
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *AccountRepo) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	const getAccount = `
	SELECT id, created_at, phone, balance, version, referral_code, referred_by FROM accounts
	WHERE id = $1
	`

	rows, _ := r.DB.Query(ctx, getAccount, accountID)
	return collectAccount(rows)
}

func (r *AccountRepo) GetAccountByPhone(ctx context.Context, phone string) (models.Account, error) {
	const getAccountByPhone = `
	SELECT id, created_at, phone, balance, version, referral_code, referred_by FROM accounts
	WHERE phone = $1
	`

	rows, _ := r.DB.Query(ctx, getAccountByPhone, phone)
	return collectAccount(rows)
}

func (r *AccountRepo) GetAccountByReferralCode(ctx context.Context, code string) (models.Account, error) {
	const getAccountByCode = `
	SELECT id, created_at, phone, balance, version, referral_code, referred_by FROM accounts
	WHERE referral_code = $1
	`

	rows, _ := r.DB.Query(ctx, getAccountByCode, code)
	return collectAccount(rows)
}

// Conditional write: succeeds only if nobody bumped the version since it was read
const updateBalance = `-- name: UpdateBalance
UPDATE accounts
SET balance = $3, version = version + 1
WHERE id = $1 AND version = $2
RETURNING id, created_at, phone, balance, version, referral_code, referred_by
`

func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, updateBalance, accountID, expectedVersion, newBalance)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrVersionConflict
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

func (r *AccountRepo) CountReferrals(ctx context.Context, accountID uuid.UUID) (int64, error) {
	const countReferrals = `
	SELECT count(*) FROM accounts
	WHERE referred_by = $1
	`

	var count int64
	err := r.DB.QueryRow(ctx, countReferrals, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *AccountRepo) Totals(ctx context.Context) (repository.AccountTotals, error) {
	const totals = `
	SELECT count(*), coalesce(sum(balance), 0) FROM accounts
	`

	var t repository.AccountTotals
	err := r.DB.QueryRow(ctx, totals).Scan(&t.Accounts, &t.TotalBalance)
	if err != nil {
		return t, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func collectAccount(rows pgx.Rows) (models.Account, error) {
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Phone, &a.Balance, &a.Version, &a.ReferralCode, &a.ReferredBy)
	return a, err
}

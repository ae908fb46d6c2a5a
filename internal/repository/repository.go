package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/models"
)

// Account repository (the ledger store side of accounts)
type AccountRepo interface {
	// Create account with zero balance and version 1
	// If account with the phone exists already has to return apperrors.ErrAccountAlreadyExists
	// If the referral code is taken has to return apperrors.ErrReferralCodeTaken
	CreateAccount(ctx context.Context, params CreateAccountParams) (models.Account, error)

	// Get account by id, phone or referral code
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (models.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (models.Account, error)

	// Set account balance conditional on the version not changed since read.
	// Bumps the version on success.
	// If the version moved must return apperrors.ErrVersionConflict
	UpdateBalance(ctx context.Context, accountID uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) (models.Account, error)

	// Number of accounts that named this account's referral code at registration
	CountReferrals(ctx context.Context, accountID uuid.UUID) (int64, error)

	// Platform wide totals for the admin dashboard
	Totals(ctx context.Context) (AccountTotals, error)
}

type CreateAccountParams struct {
	Phone        string
	ReferralCode string
	ReferredBy   *uuid.UUID
}

type AccountTotals struct {
	Accounts     int64
	TotalBalance decimal.Decimal
}

// TransactionRequest repository
type RequestRepo interface {
	// Create pending request.
	// If a request with the same (account, idempotency token) already exists
	// return the existing request as is, do not create a second row.
	// Returned bool reports whether a new row was created.
	CreateRequest(ctx context.Context, request models.TransactionRequest) (models.TransactionRequest, bool, error)

	// Get request by id
	// If not found must return apperrors.ErrRequestNotFound
	GetRequest(ctx context.Context, requestID uuid.UUID) (models.TransactionRequest, error)

	// Decide pending request: transition pending -> approved | rejected
	// Records decided_at and decided_by.
	// If the request is not pending must return apperrors.ErrInvalidTransition
	Decide(ctx context.Context, requestID uuid.UUID, newStatus string, adminID uuid.UUID, reason *string) (models.TransactionRequest, error)

	// Reconciler only transitions: approved -> applied | rejected
	MarkApplied(ctx context.Context, requestID uuid.UUID) (models.TransactionRequest, error)
	MarkFailed(ctx context.Context, requestID uuid.UUID, reason string) (models.TransactionRequest, error)

	// Cancel pending request on behalf of its submitter
	// Legal only while pending; returns apperrors.ErrInvalidTransition otherwise.
	// If the request does not belong to the account returns apperrors.ErrRequestNotFound
	Cancel(ctx context.Context, requestID uuid.UUID, accountID uuid.UUID) (models.TransactionRequest, error)

	// List requests with optional filters, newest first
	ListRequests(ctx context.Context, opts ListRequestsOpts) ([]models.TransactionRequest, error)

	// Count requests matching the filters
	CountRequests(ctx context.Context, opts ListRequestsOpts) (int64, error)
}

type ListRequestsOpts struct {
	Statuses  []string
	Kinds     []string
	AccountID *uuid.UUID

	// Return requests created strictly before the marker, for restartable paging
	CreatedBefore *time.Time

	// Max rows to return, 0 means no limit
	Limit int
}

// Append-only transaction log
type LedgerRepo interface {
	// Append entry for an applied request
	// If an entry for the request already exists must return apperrors.ErrEntryAlreadyExists
	CreateEntry(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error)

	// Entry recorded for the request
	// If not found must return apperrors.ErrEntryNotFound
	GetEntryByRequest(ctx context.Context, requestID uuid.UUID) (models.LedgerEntry, error)

	// Account entries, newest first
	ListEntries(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEntry, error)
}

// Admin repository
type AdminRepo interface {
	// Create admin
	// If admin with username exists already has to return apperrors.ErrAdminAlreadyExists
	CreateAdmin(ctx context.Context, username string, hashedPassword string) (models.Admin, error)

	// Get admin by id or username
	// If admin not found must return apperrors.ErrAdminNotFound
	GetAdminByID(ctx context.Context, adminID uuid.UUID) (models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (models.Admin, error)
}

// Storage aggregates all repositories over one connection or transaction
type Storage interface {
	Account() AccountRepo
	Request() RequestRepo
	Ledger() LedgerRepo
	Admin() AdminRepo

	// Run fn within a database transaction
	// Storage passed to fn operates on the transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}

package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

const (
	referralCodeLength   = 6
	referralCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Referral code collisions are rare, a couple of retries is plenty
	referralCodeAttempts = 3

	// Transactions shown on the account summary
	summaryEntriesLimit = 10
)

// Service owns account provisioning and read models over the ledger.
// Identity verification happens upstream: phone numbers arriving here are
// already verified by the auth collaborator.
type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		storage: storage,
		logger:  l,
	}
}

// Register returns the account for the verified phone, creating it on first
// contact. referredByCode optionally links the new account to its inviter;
// an unknown code fails with apperrors.ErrReferralCodeUnknown, the caller may
// retry without it. The link is recorded only at creation and never changes.
func (s *Service) Register(ctx context.Context, phone string, referredByCode string) (models.Account, error) {
	account, err := s.storage.Account().GetAccountByPhone(ctx, phone)
	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, apperrors.ErrAccountNotFound):
		// first contact, provision below
	default:
		return account, err
	}

	var referredBy *uuid.UUID
	if referredByCode != "" {
		inviter, err := s.storage.Account().GetAccountByReferralCode(ctx, referredByCode)
		switch {
		case err == nil:
			referredBy = &inviter.ID
		case errors.Is(err, apperrors.ErrAccountNotFound):
			return account, apperrors.ErrReferralCodeUnknown
		default:
			return account, err
		}
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return account, fmt.Errorf("can't generate referral code. Err: %w", err)
		}

		account, err = s.storage.Account().CreateAccount(ctx, repository.CreateAccountParams{
			Phone:        phone,
			ReferralCode: code,
			ReferredBy:   referredBy,
		})

		switch {
		case err == nil:
			s.logger.Info("Account provisioned", "account_id", account.ID, "invited", referredBy != nil)
			return account, nil
		case errors.Is(err, apperrors.ErrReferralCodeTaken):
			continue
		case errors.Is(err, apperrors.ErrAccountAlreadyExists):
			// Concurrent first contact from the same phone, take the winner
			return s.storage.Account().GetAccountByPhone(ctx, phone)
		default:
			return account, err
		}
	}

	return account, apperrors.ErrReferralCodeTaken
}

// GetAccount returns the account by id
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().GetAccount(ctx, accountID)
}

// GetAccountByPhone returns the account of a verified phone identity
func (s *Service) GetAccountByPhone(ctx context.Context, phone string) (models.Account, error) {
	return s.storage.Account().GetAccountByPhone(ctx, phone)
}

type Summary struct {
	Balance          decimal.Decimal
	PendingCount     int64
	LastTransactions []models.LedgerEntry
}

// GetSummary returns the dashboard view of an account: current balance,
// number of requests still pending review and the most recent ledger entries
func (s *Service) GetSummary(ctx context.Context, accountID uuid.UUID) (Summary, error) {
	var summary Summary

	account, err := s.storage.Account().GetAccount(ctx, accountID)
	if err != nil {
		return summary, err
	}

	pending, err := s.storage.Request().CountRequests(ctx, repository.ListRequestsOpts{
		Statuses:  []string{models.RequestStatusPending},
		AccountID: &accountID,
	})
	if err != nil {
		return summary, fmt.Errorf("can't count pending requests. Err: %w", err)
	}

	entries, err := s.storage.Ledger().ListEntries(ctx, accountID, summaryEntriesLimit)
	if err != nil {
		return summary, fmt.Errorf("can't list ledger entries. Err: %w", err)
	}

	return Summary{
		Balance:          account.Balance,
		PendingCount:     pending,
		LastTransactions: entries,
	}, nil
}

type TeamStats struct {
	ReferralCode string
	TeamSize     int64
}

// GetTeamStats returns the account's referral code and how many accounts
// registered with it
func (s *Service) GetTeamStats(ctx context.Context, accountID uuid.UUID) (TeamStats, error) {
	var stats TeamStats

	account, err := s.storage.Account().GetAccount(ctx, accountID)
	if err != nil {
		return stats, err
	}

	teamSize, err := s.storage.Account().CountReferrals(ctx, accountID)
	if err != nil {
		return stats, err
	}

	return TeamStats{
		ReferralCode: account.ReferralCode,
		TeamSize:     teamSize,
	}, nil
}

type PlatformStats struct {
	Accounts           int64
	TotalBalance       decimal.Decimal
	PendingDeposits    int64
	PendingWithdrawals int64
}

// GetPlatformStats returns the totals shown on the admin dashboard
func (s *Service) GetPlatformStats(ctx context.Context) (PlatformStats, error) {
	var stats PlatformStats

	totals, err := s.storage.Account().Totals(ctx)
	if err != nil {
		return stats, err
	}

	countPending := func(kind string) (int64, error) {
		return s.storage.Request().CountRequests(ctx, repository.ListRequestsOpts{
			Statuses: []string{models.RequestStatusPending},
			Kinds:    []string{kind},
		})
	}

	deposits, err := countPending(models.RequestKindDeposit)
	if err != nil {
		return stats, err
	}
	withdrawals, err := countPending(models.RequestKindWithdrawal)
	if err != nil {
		return stats, err
	}

	return PlatformStats{
		Accounts:           totals.Accounts,
		TotalBalance:       totals.TotalBalance,
		PendingDeposits:    deposits,
		PendingWithdrawals: withdrawals,
	}, nil
}

func generateReferralCode() (string, error) {
	code := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

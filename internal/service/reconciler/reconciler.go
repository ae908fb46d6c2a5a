package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/metrics"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

// Bounded optimistic retry before surfacing contention to the caller
const defaultMaxAttempts = 5

type Config struct {
	// Attempts of the read-check-write cycle before giving up with ErrContention
	// If not set the default is used
	MaxAttempts int
}

// Reconciler applies approved requests to the ledger exactly once.
// Balance update, request transition and log append happen in one database
// transaction, so no partial mutation is ever observable.
type Reconciler struct {
	maxAttempts int
	storage     repository.Storage
	logger      logger.Logger
}

func New(cfg Config, storage repository.Storage, l logger.Logger) *Reconciler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if l == nil {
		l = logger.NewNoOp()
	}

	return &Reconciler{
		maxAttempts: cfg.MaxAttempts,
		storage:     storage,
		logger:      l,
	}
}

// Apply moves an approved request to applied and mutates the account balance.
// Idempotent: applying an already applied request returns the recorded ledger
// entry without touching the balance again.
//
// A withdrawal whose balance moved below the amount since approval is
// transitioned to rejected with a reason and ErrBalanceInsufficient is
// returned; the request is never silently dropped.
func (r *Reconciler) Apply(ctx context.Context, requestID uuid.UUID) (models.LedgerEntry, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		entry, err := r.applyOnce(ctx, requestID)

		switch {
		case err == nil:
			metrics.AppliesTotal.WithLabelValues(metrics.ResultApplied).Inc()
			return entry, nil

		case errors.Is(err, apperrors.ErrVersionConflict):
			// Somebody moved the balance between our read and write, rerun
			// the whole read-check-write cycle on fresh data
			metrics.ApplyVersionConflicts.Inc()
			r.logger.Debug("Version conflict while applying request, retrying",
				"request_id", requestID,
				"attempt", attempt,
			)
			continue

		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			metrics.AppliesTotal.WithLabelValues(metrics.ResultInsufficientFunds).Inc()
			return entry, err

		default:
			metrics.AppliesTotal.WithLabelValues(metrics.ResultError).Inc()
			return entry, err
		}
	}

	metrics.AppliesTotal.WithLabelValues(metrics.ResultContention).Inc()
	r.logger.Warn("Giving up applying request after repeated version conflicts",
		"request_id", requestID,
		"attempts", r.maxAttempts,
	)

	return models.LedgerEntry{}, apperrors.ErrContention
}

// applyOnce runs one read-check-write cycle in a single database transaction
func (r *Reconciler) applyOnce(ctx context.Context, requestID uuid.UUID) (models.LedgerEntry, error) {
	var entry models.LedgerEntry

	// Business failure that must be committed, not rolled back:
	// the request transition to rejected has to survive the transaction
	var applyErr error

	err := r.storage.InTx(ctx, func(s repository.Storage) error {
		request, err := s.Request().GetRequest(ctx, requestID)
		if err != nil {
			return err
		}

		switch request.Status {
		case models.RequestStatusApplied:
			// Already applied, return the previously recorded result
			entry, err = s.Ledger().GetEntryByRequest(ctx, requestID)
			return err
		case models.RequestStatusApproved:
			// proceed
		default:
			return apperrors.ErrInvalidTransition
		}

		account, err := s.Account().GetAccount(ctx, request.AccountID)
		if err != nil {
			return err
		}

		var newBalance decimal.Decimal
		switch request.Kind {
		case models.RequestKindDeposit:
			newBalance = account.Balance.Add(request.Amount)

		case models.RequestKindWithdrawal:
			// Balance may have moved since approval, re-check here
			if account.Balance.LessThan(request.Amount) {
				if _, err := s.Request().MarkFailed(ctx, request.ID, "insufficient balance at application time"); err != nil {
					return err
				}
				applyErr = apperrors.ErrBalanceInsufficient
				return nil
			}
			newBalance = account.Balance.Sub(request.Amount)

		default:
			return fmt.Errorf("unknown request kind: %q", request.Kind)
		}

		updated, err := s.Account().UpdateBalance(ctx, account.ID, newBalance, account.Version)
		if err != nil {
			return err
		}

		if _, err := s.Request().MarkApplied(ctx, request.ID); err != nil {
			return err
		}

		entry, err = s.Ledger().CreateEntry(ctx, models.LedgerEntry{
			RequestID:    request.ID,
			AccountID:    account.ID,
			Kind:         request.Kind,
			Amount:       request.Amount,
			BalanceAfter: updated.Balance,
			VersionAfter: updated.Version,
		})
		return err
	})

	switch {
	case err != nil:
		return entry, err
	case applyErr != nil:
		return entry, applyErr
	default:
		return entry, nil
	}
}

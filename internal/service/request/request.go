package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
	"github.com/ybenkirane/atlaspay/internal/service/validate"
)

// Default amount bounds, MAD
var (
	defaultDepositMin    = decimal.NewFromInt(100)
	defaultDepositMax    = decimal.NewFromInt(10000)
	defaultWithdrawalMin = decimal.NewFromInt(100)
)

type Config struct {
	// Deposit amount bounds, defaults 100 and 10000
	DepositMin decimal.Decimal
	DepositMax decimal.Decimal

	// Withdrawal floor, default 100
	// The ceiling is the account balance, checked at submission and again at apply time
	WithdrawalMin decimal.Decimal
}

// Service validates submissions and drives the request lifecycle:
// pending -> {approved, rejected}, approved -> {applied, rejected}.
// The approved -> applied / approved -> rejected legs belong to the reconciler.
type Service struct {
	cfg     Config
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage, l logger.Logger) *Service {
	setDefaultDecimal := func(field *decimal.Decimal, def decimal.Decimal) {
		if field.IsZero() {
			*field = def
		}
	}
	setDefaultDecimal(&cfg.DepositMin, defaultDepositMin)
	setDefaultDecimal(&cfg.DepositMax, defaultDepositMax)
	setDefaultDecimal(&cfg.WithdrawalMin, defaultWithdrawalMin)

	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		cfg:     cfg,
		storage: storage,
		logger:  l,
	}
}

type SubmitDepositParams struct {
	AccountID        uuid.UUID
	Amount           decimal.Decimal
	PaymentMethod    string
	FullName         string
	BankAccount      string
	ProofURI         string
	IdempotencyToken string
}

// SubmitDeposit validates the deposit and creates a pending request.
// A resubmission with an already used idempotency token returns the existing
// request together with apperrors.ErrDuplicateSubmission, callers should treat
// it as success.
func (s *Service) SubmitDeposit(ctx context.Context, p SubmitDepositParams) (models.TransactionRequest, error) {
	var request models.TransactionRequest

	if p.Amount.LessThan(s.cfg.DepositMin) || p.Amount.GreaterThan(s.cfg.DepositMax) {
		return request, apperrors.ErrAmountOutOfRange
	}
	if !knownPaymentMethod(p.PaymentMethod) {
		return request, apperrors.ErrUnknownPaymentMethod
	}
	if p.FullName == "" || p.IdempotencyToken == "" {
		return request, apperrors.ErrMissingField
	}
	if p.ProofURI == "" {
		return request, apperrors.ErrMissingProof
	}

	rib, err := validate.RIB(p.BankAccount)
	if err != nil {
		return request, err
	}

	// Fail early on unknown accounts instead of bubbling an FK violation
	if _, err := s.storage.Account().GetAccount(ctx, p.AccountID); err != nil {
		return request, err
	}

	return s.create(ctx, models.TransactionRequest{
		AccountID:        p.AccountID,
		Kind:             models.RequestKindDeposit,
		Amount:           p.Amount,
		PaymentMethod:    p.PaymentMethod,
		FullName:         p.FullName,
		BankAccount:      rib,
		ProofURI:         p.ProofURI,
		IdempotencyToken: p.IdempotencyToken,
	})
}

type SubmitWithdrawalParams struct {
	AccountID        uuid.UUID
	Amount           decimal.Decimal
	FullName         string
	BankAccount      string
	ProofURI         string // must be empty, proof makes no sense for withdrawals
	IdempotencyToken string
}

// SubmitWithdrawal validates the withdrawal and creates a pending request.
// The balance is checked here for early feedback and re-checked by the
// reconciler at apply time, so an approval never overdraws the account.
func (s *Service) SubmitWithdrawal(ctx context.Context, p SubmitWithdrawalParams) (models.TransactionRequest, error) {
	var request models.TransactionRequest

	if p.Amount.LessThan(s.cfg.WithdrawalMin) {
		return request, apperrors.ErrAmountOutOfRange
	}
	if p.ProofURI != "" {
		return request, apperrors.ErrProofNotAllowed
	}
	if p.IdempotencyToken == "" {
		return request, apperrors.ErrMissingField
	}

	rib, err := validate.RIB(p.BankAccount)
	if err != nil {
		return request, err
	}

	account, err := s.storage.Account().GetAccount(ctx, p.AccountID)
	if err != nil {
		return request, err
	}
	if account.Balance.LessThan(p.Amount) {
		return request, apperrors.ErrBalanceInsufficient
	}

	return s.create(ctx, models.TransactionRequest{
		AccountID:        p.AccountID,
		Kind:             models.RequestKindWithdrawal,
		Amount:           p.Amount,
		FullName:         p.FullName,
		BankAccount:      rib,
		IdempotencyToken: p.IdempotencyToken,
	})
}

func (s *Service) create(ctx context.Context, candidate models.TransactionRequest) (models.TransactionRequest, error) {
	request, created, err := s.storage.Request().CreateRequest(ctx, candidate)
	if err != nil {
		return request, fmt.Errorf("can't create request. Err: %w", err)
	}

	if !created {
		s.logger.Info("Duplicate submission, returning existing request",
			"request_id", request.ID,
			"account_id", request.AccountID,
		)
		return request, apperrors.ErrDuplicateSubmission
	}

	return request, nil
}

// Decide transitions a pending request to approved or rejected.
// The actor must hold reviewer capability: adminID has to name an existing
// admin, anything else fails with apperrors.ErrUnauthorized.
func (s *Service) Decide(ctx context.Context, requestID uuid.UUID, adminID uuid.UUID, approve bool, reason string) (models.TransactionRequest, error) {
	var request models.TransactionRequest

	_, err := s.storage.Admin().GetAdminByID(ctx, adminID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrAdminNotFound):
		return request, apperrors.ErrUnauthorized
	default:
		return request, fmt.Errorf("can't check reviewer capability. Err: %w", err)
	}

	newStatus := models.RequestStatusRejected
	if approve {
		newStatus = models.RequestStatusApproved
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	request, err = s.storage.Request().Decide(ctx, requestID, newStatus, adminID, reasonPtr)
	if err != nil {
		return request, err
	}

	s.logger.Info("Request decided",
		"request_id", request.ID,
		"status", request.Status,
		"admin_id", adminID,
	)

	return request, nil
}

// Cancel withdraws a pending request on behalf of its submitter.
// Once a request is approved it can no longer be cancelled.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID, accountID uuid.UUID) (models.TransactionRequest, error) {
	return s.storage.Request().Cancel(ctx, requestID, accountID)
}

func (s *Service) GetRequest(ctx context.Context, requestID uuid.UUID) (models.TransactionRequest, error) {
	return s.storage.Request().GetRequest(ctx, requestID)
}

// ListPending returns pending requests for admin review, newest first.
// CreatedBefore allows restartable paging over a stable ordering.
func (s *Service) ListPending(ctx context.Context, opts repository.ListRequestsOpts) ([]models.TransactionRequest, error) {
	opts.Statuses = []string{models.RequestStatusPending}
	return s.storage.Request().ListRequests(ctx, opts)
}

// ListAccountRequests returns the account's own requests, newest first
func (s *Service) ListAccountRequests(ctx context.Context, accountID uuid.UUID, limit int) ([]models.TransactionRequest, error) {
	return s.storage.Request().ListRequests(ctx, repository.ListRequestsOpts{
		AccountID: &accountID,
		Limit:     limit,
	})
}

func knownPaymentMethod(method string) bool {
	for _, m := range models.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

package apperrors

import (
	"errors"
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrReferralCodeTaken    = errors.New("referral code already taken")
	ErrReferralCodeUnknown  = errors.New("referral code unknown")

	ErrAdminAlreadyExists = errors.New("admin already exists")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrAmountOutOfRange     = errors.New("amount is out of allowed range")
	ErrInvalidAccountNumber = errors.New("bank account number is invalid")
	ErrMissingProof         = errors.New("proof of payment is required")
	ErrProofNotAllowed      = errors.New("proof of payment is not allowed for withdrawals")
	ErrMissingField         = errors.New("required field is missing")
	ErrUnknownPaymentMethod = errors.New("payment method is unknown")

	ErrDuplicateSubmission = errors.New("request with the same idempotency token already exists")
	ErrRequestNotFound     = errors.New("transaction request not found")
	ErrInvalidTransition   = errors.New("request status transition is not allowed")
	ErrEntryAlreadyExists  = errors.New("ledger entry already exists for request")
	ErrEntryNotFound       = errors.New("ledger entry not found")

	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrVersionConflict     = errors.New("account version changed since read")
	ErrContention          = errors.New("account is under contention, retry later")
)

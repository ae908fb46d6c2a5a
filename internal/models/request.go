package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RequestKindDeposit    = "deposit"
	RequestKindWithdrawal = "withdrawal"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
	RequestStatusApplied  = "applied"
)

const (
	PaymentMethodCommonPay = "commonpay"
	PaymentMethodUSDTTRC20 = "usdt_trc20"
)

// PaymentMethods lists the methods a deposit may name
var PaymentMethods = []string{
	PaymentMethodCommonPay,
	PaymentMethodUSDTTRC20,
}

// TransactionRequest is a deposit or withdrawal waiting for admin review.
// Once status leaves 'pending' only the status/decided fields may change.
type TransactionRequest struct {
	ID        uuid.UUID
	CreatedAt time.Time
	AccountID uuid.UUID
	Kind      string
	Amount    decimal.Decimal

	// Supporting fields for manual verification
	PaymentMethod string // deposits only
	FullName      string
	BankAccount   string // RIB, 24 digits
	ProofURI      string // object storage URI, deposits only

	Status    string
	Reason    *string    // set when request is rejected
	DecidedAt *time.Time // nil while pending
	DecidedBy *uuid.UUID // admin who decided, nil while pending

	// Client supplied token, unique per account, so retried submissions
	// don't create a second pending record
	IdempotencyToken string
}

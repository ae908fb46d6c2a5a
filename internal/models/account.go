package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the ledger side of a platform user.
// Balance is mutated only through the reconciler apply path and the version
// counter is bumped on every mutation, so a stale read never overwrites a
// concurrent one.
type Account struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Phone        string
	Balance      decimal.Decimal
	Version      int64
	ReferralCode string
	ReferredBy   *uuid.UUID // nil if account was not invited by anyone
}

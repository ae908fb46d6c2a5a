package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is the append-only record of one applied transaction request.
// Exactly one entry exists per applied request (request_id is unique).
type LedgerEntry struct {
	ID           uuid.UUID
	RecordedAt   time.Time
	RequestID    uuid.UUID
	AccountID    uuid.UUID
	Kind         string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	VersionAfter int64
}

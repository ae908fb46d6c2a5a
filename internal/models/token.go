package models

import (
	"time"
)

// IssuedToken is a signed token with its expiry, as handed to clients
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type Admin struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string
}

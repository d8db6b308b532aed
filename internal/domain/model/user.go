package model

import (
	"time"

	"github.com/google/uuid"
)

// User carries the voting-relevant slice of an account record. Points is a
// signed running score with no floor or cap; BlockedUsers is consumed by
// feed filtering and never mutated here.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Points       int         `json:"points"`
	BlockedUsers []uuid.UUID `json:"blocked_users"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

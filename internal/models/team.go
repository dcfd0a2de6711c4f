package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a league franchise. OwnerEmail is nil for unassigned teams.
type Team struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	OwnerEmail *string   `json:"owner_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

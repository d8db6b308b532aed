package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
)

// Upload is a submitted item subject to pairwise ranking.
//
// Votes, InteractedVotes and BestVotes are vote-id sets with the standing
// invariant BestVotes ⊆ InteractedVotes ⊆ Votes.
type Upload struct {
	ID              uuid.UUID     `json:"id"`
	OwnerID         uuid.UUID     `json:"owner_id"`
	Gender          enums.Gender  `json:"gender"`
	AgeType         enums.AgeType `json:"age_type"`
	IsAllowForVote  bool          `json:"is_allow_for_vote"`
	IsAdminCreated  bool          `json:"is_admin_created"`
	Votes           []uuid.UUID   `json:"votes"`
	InteractedVotes []uuid.UUID   `json:"interacted_votes"`
	BestVotes       []uuid.UUID   `json:"best_votes"`
	Level           *int          `json:"level,omitempty"`
	LevelPercentage float64       `json:"level_percentage"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

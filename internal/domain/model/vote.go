package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
)

// Vote is a persistent head-to-head matchup between two uploads. It has no
// terminal state: counters keep accumulating choices for as long as both
// uploads exist. Gender and AgeType are denormalized from the uploads at
// creation time for query efficiency.
type Vote struct {
	ID                 uuid.UUID     `json:"id"`
	ImageOneID         uuid.UUID     `json:"image_one_id"`
	ImageTwoID         uuid.UUID     `json:"image_two_id"`
	ImageOneVoteNumber int           `json:"image_one_vote_number"`
	ImageTwoVoteNumber int           `json:"image_two_vote_number"`
	InteractedUsers    []uuid.UUID   `json:"interacted_users"`
	Gender             enums.Gender  `json:"gender"`
	AgeType            enums.AgeType `json:"age_type"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// HasInteracted reports whether the user already cast a choice on this pairing.
func (v Vote) HasInteracted(userID uuid.UUID) bool {
	for _, id := range v.InteractedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

package dto

type ChoiceRequest struct {
	UserID string `json:"user_id"`
	Choice string `json:"choice"`
}

type VotePayload struct {
	ID                 string   `json:"id"`
	ImageOneID         string   `json:"image_one_id"`
	ImageTwoID         string   `json:"image_two_id"`
	ImageOneVoteNumber int      `json:"image_one_vote_number"`
	ImageTwoVoteNumber int      `json:"image_two_vote_number"`
	Gender             string   `json:"gender"`
	AgeType            string   `json:"age_type"`
	InteractedUsers    []string `json:"interacted_users"`
}

type ResolveChoiceResponse struct {
	OK         bool        `json:"ok"`
	Repeated   bool        `json:"repeated"`
	UserPoints int         `json:"user_points"`
	Vote       VotePayload `json:"vote"`
}

type VoteFeedResponse struct {
	Votes      []VotePayload `json:"votes"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalItems int           `json:"total_items"`
	UserPoints int           `json:"user_points"`
}

package dto

type UploadPayload struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	Gender          string  `json:"gender"`
	AgeType         string  `json:"age_type"`
	Level           *int    `json:"level"`
	LevelPercentage float64 `json:"level_percentage"`
	VoteCount       int     `json:"vote_count"`
	InteractedCount int     `json:"interacted_count"`
	BestCount       int     `json:"best_count"`
}

type UploadPageResponse struct {
	Uploads    []UploadPayload `json:"uploads"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalItems int             `json:"total_items"`
}

type MigrateLevelsResponse struct {
	OK      bool `json:"ok"`
	Updated int  `json:"updated"`
}

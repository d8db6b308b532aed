package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
	"github.com/kkkhaled/yolel-4/internal/domain/model"
	votessvc "github.com/kkkhaled/yolel-4/internal/services/votes"
	"github.com/kkkhaled/yolel-4/internal/transport/http/dto"
	httperrors "github.com/kkkhaled/yolel-4/internal/transport/http/errors"
)

type VoteHandler struct {
	service *votessvc.Service
}

func NewVoteHandler(service *votessvc.Service) *VoteHandler {
	return &VoteHandler{service: service}
}

// ResolveChoice handles POST /votes/{voteID}/choice.
func (h *VoteHandler) ResolveChoice(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote service is unavailable")
		return
	}

	voteID, ok := uuidFromParam(r, "voteID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid vote id")
		return
	}

	var req dto.ChoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	result, err := h.service.Resolve(r.Context(), voteID, userID, enums.Choice(req.Choice))
	if err != nil {
		switch {
		case errors.Is(err, votessvc.ErrInvalidChoice):
			writeBadRequest(w, "VALIDATION_ERROR", "choice must be imageOne or imageTwo")
		case errors.Is(err, votessvc.ErrVoteNotFound):
			writeNotFound(w, "VOTE_NOT_FOUND", "vote not found")
		case errors.Is(err, votessvc.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case storeUnreachable(err):
			writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote storage is unreachable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve choice")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ResolveChoiceResponse{
		OK:         true,
		Repeated:   result.Repeated,
		UserPoints: result.UserPoints,
		Vote:       mapVote(result.Vote),
	})
}

// Get handles GET /votes/{voteID}.
func (h *VoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote service is unavailable")
		return
	}

	voteID, ok := uuidFromParam(r, "voteID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid vote id")
		return
	}

	vote, err := h.service.Get(r.Context(), voteID)
	if err != nil {
		if errors.Is(err, votessvc.ErrVoteNotFound) {
			writeNotFound(w, "VOTE_NOT_FOUND", "vote not found")
			return
		}
		if storeUnreachable(err) {
			writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote storage is unreachable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load vote")
		return
	}

	httperrors.Write(w, http.StatusOK, mapVote(vote))
}

// Feed handles GET /votes/feed.
func (h *VoteHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote service is unavailable")
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("user_id")))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "user_id is required")
		return
	}

	var gender enums.Gender
	if raw := strings.TrimSpace(r.URL.Query().Get("gender")); raw != "" {
		parsed, ok := enums.ParseGender(raw)
		if !ok {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid gender filter")
			return
		}
		gender = parsed
	}

	var ageType enums.AgeType
	if raw := strings.TrimSpace(r.URL.Query().Get("age_type")); raw != "" {
		parsed, ok := enums.ParseAgeType(raw)
		if !ok {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid age_type filter")
			return
		}
		ageType = parsed
	}

	page, err := h.service.ListFeed(
		r.Context(),
		userID,
		gender,
		ageType,
		intFromQuery(r, "page"),
		intFromQuery(r, "size"),
	)
	if err != nil {
		if errors.Is(err, votessvc.ErrUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
			return
		}
		if storeUnreachable(err) {
			writeUnavailable(w, "VOTE_SERVICE_UNAVAILABLE", "vote storage is unreachable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load vote feed")
		return
	}

	votes := make([]dto.VotePayload, 0, len(page.Votes))
	for _, v := range page.Votes {
		votes = append(votes, mapVote(v))
	}

	httperrors.Write(w, http.StatusOK, dto.VoteFeedResponse{
		Votes:      votes,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		UserPoints: page.UserPoints,
	})
}

func mapVote(v model.Vote) dto.VotePayload {
	interacted := make([]string, 0, len(v.InteractedUsers))
	for _, id := range v.InteractedUsers {
		interacted = append(interacted, id.String())
	}

	return dto.VotePayload{
		ID:                 v.ID.String(),
		ImageOneID:         v.ImageOneID.String(),
		ImageTwoID:         v.ImageTwoID.String(),
		ImageOneVoteNumber: v.ImageOneVoteNumber,
		ImageTwoVoteNumber: v.ImageTwoVoteNumber,
		Gender:             string(v.Gender),
		AgeType:            string(v.AgeType),
		InteractedUsers:    interacted,
	}
}

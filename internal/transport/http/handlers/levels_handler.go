package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kkkhaled/yolel-4/internal/domain/model"
	levelssvc "github.com/kkkhaled/yolel-4/internal/services/levels"
	"github.com/kkkhaled/yolel-4/internal/transport/http/dto"
	httperrors "github.com/kkkhaled/yolel-4/internal/transport/http/errors"
)

type LevelsHandler struct {
	service *levelssvc.Service
}

func NewLevelsHandler(service *levelssvc.Service) *LevelsHandler {
	return &LevelsHandler{service: service}
}

// ByLevel handles GET /uploads/levels/{level}.
func (h *LevelsHandler) ByLevel(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "levels service is unavailable")
		return
	}

	level, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "level")))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "level must be an integer")
		return
	}

	page, err := h.service.QueryByLevel(r.Context(), level, intFromQuery(r, "page"), intFromQuery(r, "size"))
	if err != nil {
		if errors.Is(err, levelssvc.ErrInvalidLevel) {
			writeBadRequest(w, "VALIDATION_ERROR", "level must be between 1 and 10")
			return
		}
		if storeUnreachable(err) {
			writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "upload storage is unreachable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to query uploads by level")
		return
	}

	httperrors.Write(w, http.StatusOK, mapUploadPage(page))
}

// Search handles GET /uploads/search. It accepts either an explicit
// percentage window (from/to) or a level key that resolves to one; level 0
// selects uploads nobody has interacted with yet.
func (h *LevelsHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "levels service is unavailable")
		return
	}

	query := r.URL.Query()
	page := intFromQuery(r, "page")
	size := intFromQuery(r, "size")

	if raw := strings.TrimSpace(query.Get("level")); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "level must be a non-negative integer")
			return
		}

		result, err := h.service.QueryByLevelBucket(r.Context(), level, page, size)
		if err != nil {
			if errors.Is(err, levelssvc.ErrInvalidLevel) {
				writeBadRequest(w, "VALIDATION_ERROR", "level must be between 0 and 10")
				return
			}
			if storeUnreachable(err) {
				writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "upload storage is unreachable")
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to search uploads")
			return
		}
		httperrors.Write(w, http.StatusOK, mapUploadPage(result))
		return
	}

	from, errFrom := strconv.ParseFloat(strings.TrimSpace(query.Get("from")), 64)
	to, errTo := strconv.ParseFloat(strings.TrimSpace(query.Get("to")), 64)
	if errFrom != nil || errTo != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "from and to percentages are required")
		return
	}

	result, err := h.service.QueryByRatioRange(r.Context(), from, to, page, size)
	if err != nil {
		if errors.Is(err, levelssvc.ErrInvalidRange) {
			writeBadRequest(w, "VALIDATION_ERROR", "from must be non-negative and below to")
			return
		}
		if storeUnreachable(err) {
			writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "upload storage is unreachable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to search uploads")
		return
	}

	httperrors.Write(w, http.StatusOK, mapUploadPage(result))
}

// Migrate handles POST /uploads/levels/migrate.
func (h *LevelsHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "levels service is unavailable")
		return
	}

	updated, err := h.service.Migrate(r.Context())
	if err != nil {
		if storeUnreachable(err) {
			writeUnavailable(w, "LEVELS_SERVICE_UNAVAILABLE", "upload storage is unreachable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "level migration failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MigrateLevelsResponse{OK: true, Updated: updated})
}

func mapUploadPage(page levelssvc.Page) dto.UploadPageResponse {
	uploads := make([]dto.UploadPayload, 0, len(page.Uploads))
	for _, u := range page.Uploads {
		uploads = append(uploads, mapUpload(u))
	}

	return dto.UploadPageResponse{
		Uploads:    uploads,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
	}
}

func mapUpload(u model.Upload) dto.UploadPayload {
	return dto.UploadPayload{
		ID:              u.ID.String(),
		OwnerID:         u.OwnerID.String(),
		Gender:          string(u.Gender),
		AgeType:         string(u.AgeType),
		Level:           u.Level,
		LevelPercentage: u.LevelPercentage,
		VoteCount:       len(u.Votes),
		InteractedCount: len(u.InteractedVotes),
		BestCount:       len(u.BestVotes),
	}
}

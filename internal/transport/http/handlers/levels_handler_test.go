package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/kkkhaled/yolel-4/internal/domain/model"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
	levelssvc "github.com/kkkhaled/yolel-4/internal/services/levels"
)

type levelsStoreStub struct {
	inputs    []pgrepo.LevelInput
	updated   int
	uploads   []model.Upload
	lastRange [2]float64
	listErr   error
}

func (s *levelsStoreStub) ListLevelInputs(_ context.Context, after uuid.UUID, limit int) ([]pgrepo.LevelInput, error) {
	if after != uuid.Nil {
		return nil, nil
	}
	if len(s.inputs) > limit {
		return s.inputs[:limit], nil
	}
	return s.inputs, nil
}

func (s *levelsStoreStub) UpdateLevel(_ context.Context, _ uuid.UUID, _ *int, _ float64) error {
	s.updated++
	return nil
}

func (s *levelsStoreStub) ListByLevel(_ context.Context, _, _, _ int) ([]model.Upload, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.uploads, len(s.uploads), nil
}

func (s *levelsStoreStub) ListByRatioRange(_ context.Context, from, to float64, _, _ int) ([]model.Upload, int, error) {
	s.lastRange = [2]float64{from, to}
	return s.uploads, len(s.uploads), nil
}

func (s *levelsStoreStub) ListNeverInteracted(_ context.Context, _, _ int) ([]model.Upload, int, error) {
	return s.uploads, len(s.uploads), nil
}

func newLevelsHandler(store *levelsStoreStub) *LevelsHandler {
	svc := levelssvc.NewService(levelssvc.Dependencies{UploadStore: store}, levelssvc.Config{})
	return NewLevelsHandler(svc)
}

func rankedUpload(level int, pct float64) model.Upload {
	return model.Upload{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		Level:           &level,
		LevelPercentage: pct,
	}
}

func TestLevelsByLevelResponseShape(t *testing.T) {
	store := &levelsStoreStub{uploads: []model.Upload{rankedUpload(5, 50)}}
	h := newLevelsHandler(store)

	rr := routeRequest(h.ByLevel, http.MethodGet, "/uploads/levels/5", "/uploads/levels/{level}", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	uploads := payload["uploads"].([]interface{})
	if len(uploads) != 1 {
		t.Fatalf("unexpected uploads length: %d", len(uploads))
	}
	first := uploads[0].(map[string]interface{})
	if int(first["level"].(float64)) != 5 {
		t.Fatalf("unexpected level: %v", first["level"])
	}
	if first["level_percentage"].(float64) != 50 {
		t.Fatalf("unexpected percentage: %v", first["level_percentage"])
	}
}

func TestLevelsByLevelValidation(t *testing.T) {
	h := newLevelsHandler(&levelsStoreStub{})

	for _, raw := range []string{"0", "11", "abc"} {
		rr := routeRequest(h.ByLevel, http.MethodGet, "/uploads/levels/"+raw, "/uploads/levels/{level}", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("level %q: got %d want %d", raw, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestLevelsByLevelStoreUnreachable(t *testing.T) {
	h := newLevelsHandler(&levelsStoreStub{listErr: pgrepo.ErrUnavailable})

	rr := routeRequest(h.ByLevel, http.MethodGet, "/uploads/levels/5", "/uploads/levels/{level}", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestLevelsSearchByExplicitRange(t *testing.T) {
	store := &levelsStoreStub{uploads: []model.Upload{rankedUpload(6, 75)}}
	h := newLevelsHandler(store)

	rr := routeRequest(h.Search, http.MethodGet, "/uploads/search?from=69.14&to=93.31", "/uploads/search", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	if store.lastRange != [2]float64{69.14, 93.31} {
		t.Fatalf("range not passed through: %v", store.lastRange)
	}
}

func TestLevelsSearchByLevelKey(t *testing.T) {
	store := &levelsStoreStub{uploads: []model.Upload{rankedUpload(5, 42)}}
	h := newLevelsHandler(store)

	rr := routeRequest(h.Search, http.MethodGet, "/uploads/search?level=5", "/uploads/search", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	if store.lastRange != [2]float64{30.85, 69.14} {
		t.Fatalf("level key must resolve to its bracket: %v", store.lastRange)
	}
}

func TestLevelsSearchValidation(t *testing.T) {
	h := newLevelsHandler(&levelsStoreStub{})

	cases := []string{
		"/uploads/search",                 // neither level nor range
		"/uploads/search?from=50",         // missing to
		"/uploads/search?from=80&to=20",   // inverted range
		"/uploads/search?from=-5&to=20",   // negative floor
		"/uploads/search?level=-1",        // negative level
		"/uploads/search?level=11",        // out of table
	}
	for _, path := range cases {
		rr := routeRequest(h.Search, http.MethodGet, path, "/uploads/search", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d want %d", path, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestLevelsMigrateReturnsCount(t *testing.T) {
	store := &levelsStoreStub{inputs: []pgrepo.LevelInput{
		{ID: uuid.New(), BestCount: 5, InteractedCount: 10},
		{ID: uuid.New(), BestCount: 0, InteractedCount: 0},
	}}
	h := newLevelsHandler(store)

	rr := routeRequest(h.Migrate, http.MethodPost, "/uploads/levels/migrate", "/uploads/levels/migrate", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected ok flag: %v", payload["ok"])
	}
	if int(payload["updated"].(float64)) != 2 {
		t.Fatalf("unexpected updated count: %v", payload["updated"])
	}
	if store.updated != 2 {
		t.Fatalf("store must be rewritten for each upload, got %d", store.updated)
	}
}

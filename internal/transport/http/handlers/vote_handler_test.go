package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
	"github.com/kkkhaled/yolel-4/internal/domain/model"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
	votessvc "github.com/kkkhaled/yolel-4/internal/services/votes"
)

type voteStoreStub struct {
	votes  map[uuid.UUID]model.Vote
	feed   []model.Vote
	total  int
	getErr error
}

func (s *voteStoreStub) GetByID(_ context.Context, id uuid.UUID) (model.Vote, error) {
	if s.getErr != nil {
		return model.Vote{}, s.getErr
	}
	v, ok := s.votes[id]
	if !ok {
		return model.Vote{}, pgrepo.ErrVoteNotFound
	}
	return v, nil
}

func (s *voteStoreStub) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (model.Vote, error) {
	return s.GetByID(context.Background(), id)
}

func (s *voteStoreStub) ApplyChoice(_ context.Context, _ pgx.Tx, voteID, _ uuid.UUID, _ enums.Choice) (model.Vote, error) {
	return s.votes[voteID], nil
}

func (s *voteStoreStub) ListFeedForUser(_ context.Context, _ uuid.UUID, _ []uuid.UUID, _ enums.Gender, _ enums.AgeType, _, _ int) ([]model.Vote, int, error) {
	return s.feed, s.total, nil
}

func (s *voteStoreStub) DeleteByIDs(_ context.Context, _ pgx.Tx, _ []uuid.UUID) ([]pgrepo.PairRef, error) {
	return nil, nil
}

type userStoreStub struct {
	users map[uuid.UUID]model.User
}

func (s *userStoreStub) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

func (s *userStoreStub) AdjustPoints(_ context.Context, _ pgx.Tx, _ uuid.UUID, _ int) (int, error) {
	return 0, nil
}

type uploadStoreStub struct{}

func (uploadStoreStub) GetByID(_ context.Context, _ uuid.UUID) (model.Upload, error) {
	return model.Upload{}, pgrepo.ErrUploadNotFound
}

func (uploadStoreStub) MarkVoteInteracted(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) error {
	return nil
}

func (uploadStoreStub) SetBestVote(_ context.Context, _ pgx.Tx, _, _ uuid.UUID, _ bool) error {
	return nil
}

func (uploadStoreStub) RemoveVoteRefs(_ context.Context, _ pgx.Tx, _ uuid.UUID, _ []uuid.UUID) error {
	return nil
}

func newVoteHandler(votes *voteStoreStub, users *userStoreStub) *VoteHandler {
	svc := votessvc.NewService(votessvc.Dependencies{
		VoteStore:   votes,
		UploadStore: uploadStoreStub{},
		UserStore:   users,
	}, votessvc.Config{})
	return NewVoteHandler(svc)
}

func routeRequest(h http.HandlerFunc, method, path, pattern string, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestVoteHandlerGet(t *testing.T) {
	vote := model.Vote{
		ID:                 uuid.New(),
		ImageOneID:         uuid.New(),
		ImageTwoID:         uuid.New(),
		ImageOneVoteNumber: 4,
		ImageTwoVoteNumber: 3,
		Gender:             enums.GenderFemale,
		AgeType:            enums.AgeTypeYouth,
	}
	h := newVoteHandler(&voteStoreStub{votes: map[uuid.UUID]model.Vote{vote.ID: vote}}, &userStoreStub{})

	rr := routeRequest(h.Get, http.MethodGet, "/votes/"+vote.ID.String(), "/votes/{voteID}", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["id"] != vote.ID.String() {
		t.Fatalf("unexpected vote id: %v", payload["id"])
	}
	if int(payload["image_one_vote_number"].(float64)) != 4 {
		t.Fatalf("unexpected counter: %v", payload["image_one_vote_number"])
	}
	if payload["gender"] != "female" || payload["age_type"] != "youth" {
		t.Fatalf("unexpected category: %v / %v", payload["gender"], payload["age_type"])
	}
}

func TestVoteHandlerGetNotFound(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{votes: map[uuid.UUID]model.Vote{}}, &userStoreStub{})

	rr := routeRequest(h.Get, http.MethodGet, "/votes/"+uuid.NewString(), "/votes/{voteID}", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestVoteHandlerGetRejectsMalformedID(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{}, &userStoreStub{})

	rr := routeRequest(h.Get, http.MethodGet, "/votes/not-a-uuid", "/votes/{voteID}", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestVoteHandlerGetStoreUnreachable(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{getErr: pgrepo.ErrUnavailable}, &userStoreStub{})

	rr := routeRequest(h.Get, http.MethodGet, "/votes/"+uuid.NewString(), "/votes/{voteID}", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["code"] != "VOTE_SERVICE_UNAVAILABLE" {
		t.Fatalf("unexpected error code: %v", payload["code"])
	}
}

func TestResolveChoiceValidation(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{}, &userStoreStub{})
	voteID := uuid.NewString()

	cases := []struct {
		name string
		path string
		body string
	}{
		{"malformed vote id", "/votes/nope/choice", `{"user_id":"` + uuid.NewString() + `","choice":"imageOne"}`},
		{"malformed body", "/votes/" + voteID + "/choice", `{"user_id":`},
		{"missing user id", "/votes/" + voteID + "/choice", `{"choice":"imageOne"}`},
	}
	for _, tc := range cases {
		rr := routeRequest(h.ResolveChoice, http.MethodPost, tc.path, "/votes/{voteID}/choice", tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d want %d", tc.name, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestResolveChoiceRejectsUnknownChoiceValue(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{}, &userStoreStub{})

	body := `{"user_id":"` + uuid.NewString() + `","choice":"imageThree"}`
	rr := routeRequest(h.ResolveChoice, http.MethodPost, "/votes/"+uuid.NewString()+"/choice", "/votes/{voteID}/choice", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code: %v", payload["code"])
	}
}

func TestVoteFeedResponseShape(t *testing.T) {
	userID := uuid.New()
	feedVote := model.Vote{
		ID:         uuid.New(),
		ImageOneID: uuid.New(),
		ImageTwoID: uuid.New(),
		Gender:     enums.GenderMale,
		AgeType:    enums.AgeTypeOld,
	}

	votes := &voteStoreStub{feed: []model.Vote{feedVote}, total: 12}
	users := &userStoreStub{users: map[uuid.UUID]model.User{userID: {ID: userID, Points: 5}}}
	h := newVoteHandler(votes, users)

	rr := routeRequest(h.Feed, http.MethodGet, "/votes/feed?user_id="+userID.String()+"&gender=male", "/votes/feed", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if int(payload["total_items"].(float64)) != 12 {
		t.Fatalf("unexpected total: %v", payload["total_items"])
	}
	if int(payload["user_points"].(float64)) != 5 {
		t.Fatalf("unexpected points: %v", payload["user_points"])
	}
	if int(payload["page"].(float64)) != 1 || int(payload["page_size"].(float64)) != 20 {
		t.Fatalf("unexpected pagination: %v / %v", payload["page"], payload["page_size"])
	}
	list := payload["votes"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("unexpected feed length: %d", len(list))
	}
}

func TestVoteFeedValidation(t *testing.T) {
	h := newVoteHandler(&voteStoreStub{}, &userStoreStub{})

	rr := routeRequest(h.Feed, http.MethodGet, "/votes/feed", "/votes/feed", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	rr = routeRequest(h.Feed, http.MethodGet, "/votes/feed?user_id="+uuid.NewString()+"&gender=robot", "/votes/feed", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad gender filter: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	rr = routeRequest(h.Feed, http.MethodGet, "/votes/feed?user_id="+uuid.NewString(), "/votes/feed", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

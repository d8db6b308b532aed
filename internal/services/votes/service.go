package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
	"github.com/kkkhaled/yolel-4/internal/domain/model"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
)

var (
	ErrInvalidChoice  = errors.New("invalid vote choice")
	ErrVoteNotFound   = errors.New("vote not found")
	ErrUploadNotFound = errors.New("upload not found")
	ErrUserNotFound   = errors.New("user not found")
)

type VoteStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Vote, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Vote, error)
	ApplyChoice(ctx context.Context, tx pgx.Tx, voteID, userID uuid.UUID, choice enums.Choice) (model.Vote, error)
	ListFeedForUser(ctx context.Context, userID uuid.UUID, blocked []uuid.UUID, gender enums.Gender, ageType enums.AgeType, limit, offset int) ([]model.Vote, int, error)
	DeleteByIDs(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]pgrepo.PairRef, error)
}

type UploadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Upload, error)
	MarkVoteInteracted(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID) error
	SetBestVote(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID, won bool) error
	RemoveVoteRefs(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, voteIDs []uuid.UUID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	AdjustPoints(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (int, error)
}

type Config struct {
	DefaultFeedPageSize int
	MaxFeedPageSize     int
}

// Result is the outcome of one resolved choice: the post-update vote and
// the caller's new point balance. Repeated is set when the user had already
// voted on this pairing and the call changed nothing.
type Result struct {
	Vote       model.Vote
	UserPoints int
	Repeated   bool
}

type FeedPage struct {
	Votes      []model.Vote
	Page       int
	PageSize   int
	TotalItems int
	UserPoints int
}

type Service struct {
	voteStore   VoteStore
	uploadStore UploadStore
	userStore   UserStore
	cfg         Config
	logger      *zap.Logger
	runTx       func(context.Context, func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	VoteStore   VoteStore
	UploadStore UploadStore
	UserStore   UserStore
	Logger      *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultFeedPageSize <= 0 {
		cfg.DefaultFeedPageSize = 20
	}
	if cfg.MaxFeedPageSize <= 0 {
		cfg.MaxFeedPageSize = 100
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		voteStore:   deps.VoteStore,
		uploadStore: deps.UploadStore,
		userStore:   deps.UserStore,
		cfg:         cfg,
		logger:      logger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Resolve applies one user's choice to a vote: counter, interacted-users
// set, user points, and bestVotes/InteractedVotes on both connected uploads
// move together in a single transaction, with the vote row locked so
// concurrent resolvers of the same pairing serialize.
//
// A repeat call for the same (vote, user) is an idempotent no-op: the first
// choice stands, counters and points stay untouched.
func (s *Service) Resolve(ctx context.Context, voteID, userID uuid.UUID, choice enums.Choice) (Result, error) {
	parsed, ok := enums.ParseChoice(string(choice))
	if !ok {
		return Result{}, ErrInvalidChoice
	}
	// The parsed value is the canonical form; the raw input may carry
	// padding that downstream equality checks would misread.
	choice = parsed
	if s.voteStore == nil || s.uploadStore == nil || s.userStore == nil {
		return Result{}, fmt.Errorf("vote dependencies are not configured")
	}

	var result Result
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		vote, err := s.voteStore.GetForUpdate(txCtx, tx, voteID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrVoteNotFound) {
				return ErrVoteNotFound
			}
			return err
		}

		if vote.HasInteracted(userID) {
			user, err := s.userStore.GetByID(txCtx, userID)
			if err != nil {
				if errors.Is(err, pgrepo.ErrUserNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			result = Result{Vote: vote, UserPoints: user.Points, Repeated: true}
			return nil
		}

		preOne := vote.ImageOneVoteNumber
		preTwo := vote.ImageTwoVoteNumber

		updated, err := s.voteStore.ApplyChoice(txCtx, tx, voteID, userID, choice)
		if err != nil {
			if errors.Is(err, pgrepo.ErrVoteNotFound) {
				return ErrVoteNotFound
			}
			return err
		}

		delta := -1
		if predictionCorrect(preOne, preTwo, choice) {
			delta = 1
		}
		points, err := s.userStore.AdjustPoints(txCtx, tx, userID, delta)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		oneWins, twoWins := bestVoteOutcome(updated.ImageOneVoteNumber, updated.ImageTwoVoteNumber)
		if err := s.uploadStore.SetBestVote(txCtx, tx, updated.ImageOneID, updated.ID, oneWins); err != nil {
			return err
		}
		if err := s.uploadStore.SetBestVote(txCtx, tx, updated.ImageTwoID, updated.ID, twoWins); err != nil {
			return err
		}

		if err := s.uploadStore.MarkVoteInteracted(txCtx, tx, updated.ImageOneID, updated.ID); err != nil {
			return err
		}
		if err := s.uploadStore.MarkVoteInteracted(txCtx, tx, updated.ImageTwoID, updated.ID); err != nil {
			return err
		}

		result = Result{Vote: updated, UserPoints: points}
		return nil
	}); err != nil {
		return Result{}, err
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, voteID uuid.UUID) (model.Vote, error) {
	if s.voteStore == nil {
		return model.Vote{}, fmt.Errorf("vote dependencies are not configured")
	}

	vote, err := s.voteStore.GetByID(ctx, voteID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrVoteNotFound) {
			return model.Vote{}, ErrVoteNotFound
		}
		return model.Vote{}, err
	}
	return vote, nil
}

// ListFeed returns votes the user can still act on: pairings they have not
// interacted with, excluding their own uploads and uploads owned by anyone
// on their block list. The block list is read, never changed.
func (s *Service) ListFeed(ctx context.Context, userID uuid.UUID, gender enums.Gender, ageType enums.AgeType, page, size int) (FeedPage, error) {
	if s.voteStore == nil || s.userStore == nil {
		return FeedPage{}, fmt.Errorf("vote dependencies are not configured")
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultFeedPageSize
	}
	if size > s.cfg.MaxFeedPageSize {
		size = s.cfg.MaxFeedPageSize
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return FeedPage{}, ErrUserNotFound
		}
		return FeedPage{}, err
	}

	votes, total, err := s.voteStore.ListFeedForUser(ctx, userID, user.BlockedUsers, gender, ageType, size, (page-1)*size)
	if err != nil {
		return FeedPage{}, fmt.Errorf("list vote feed: %w", err)
	}

	return FeedPage{
		Votes:      votes,
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		UserPoints: user.Points,
	}, nil
}

// DeleteForUpload is the cascade entry point the upload-management side
// calls when an upload is removed: every vote the upload participates in is
// deleted, and the partner upload on each pairing has the dead vote id
// stripped from its votes, InteractedVotes and bestVotes lists.
func (s *Service) DeleteForUpload(ctx context.Context, uploadID uuid.UUID) (int, error) {
	if s.voteStore == nil || s.uploadStore == nil {
		return 0, fmt.Errorf("vote dependencies are not configured")
	}

	upload, err := s.uploadStore.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUploadNotFound) {
			return 0, ErrUploadNotFound
		}
		return 0, err
	}
	if len(upload.Votes) == 0 {
		return 0, nil
	}

	var deleted int
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		refs, err := s.voteStore.DeleteByIDs(txCtx, tx, upload.Votes)
		if err != nil {
			return err
		}
		deleted = len(refs)

		partnerVotes := make(map[uuid.UUID][]uuid.UUID)
		for _, ref := range refs {
			partner := ref.ImageOneID
			if partner == uploadID {
				partner = ref.ImageTwoID
			}
			partnerVotes[partner] = append(partnerVotes[partner], ref.ID)
		}

		for partner, voteIDs := range partnerVotes {
			if err := s.uploadStore.RemoveVoteRefs(txCtx, tx, partner, voteIDs); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	s.logger.Info("deleted votes for removed upload",
		zap.String("upload_id", uploadID.String()),
		zap.Int("votes", deleted),
	)
	return deleted, nil
}

// predictionCorrect judges the choice against the PRE-update counters: the
// user is rewarded for picking the side already ahead, ties included.
func predictionCorrect(preOne, preTwo int, choice enums.Choice) bool {
	if choice == enums.ChoiceImageOne {
		return preOne >= preTwo
	}
	return preTwo >= preOne
}

// bestVoteOutcome decides bestVotes membership from the POST-update
// counters: the strictly larger side wins the pairing, an exact tie means
// neither side holds it.
func bestVoteOutcome(postOne, postTwo int) (oneWins, twoWins bool) {
	switch {
	case postOne > postTwo:
		return true, false
	case postTwo > postOne:
		return false, true
	default:
		return false, false
	}
}

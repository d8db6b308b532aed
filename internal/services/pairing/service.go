package pairing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/domain/model"
	"github.com/kkkhaled/yolel-4/internal/domain/rules"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
)

// ErrRunInProgress is returned when a generation run is started while a
// previous one in the same process has not finished yet.
var ErrRunInProgress = errors.New("pair generation already running")

type UploadStore interface {
	ListVotablePage(ctx context.Context, limit, offset int) ([]model.Upload, error)
	AppendVote(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID) error
}

type VoteStore interface {
	ExistsForPair(ctx context.Context, a, b uuid.UUID) (bool, error)
	Create(ctx context.Context, tx pgx.Tx, vote model.Vote) (bool, error)
}

type Config struct {
	PageSize int
}

// Report summarizes one generation run.
type Report struct {
	Pages        int
	Scanned      int
	Created      int
	SkippedUsed  int
	SkippedRaced int
}

// Service generates votes for eligible upload pairs. Pairing is page-local:
// each page of votable uploads is shuffled and matched within itself, so a
// run never compares more than pageSize uploads at a time.
type Service struct {
	uploadStore UploadStore
	voteStore   VoteStore
	cfg         Config
	logger      *zap.Logger

	runTx   func(context.Context, func(context.Context, pgx.Tx) error) error
	shuffle func([]model.Upload)
	newID   func() uuid.UUID

	mu sync.Mutex
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	UploadStore UploadStore
	VoteStore   VoteStore
	Logger      *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		uploadStore: deps.UploadStore,
		voteStore:   deps.VoteStore,
		cfg:         cfg,
		logger:      logger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
		shuffle: func(uploads []model.Upload) {
			rand.Shuffle(len(uploads), func(i, j int) {
				uploads[i], uploads[j] = uploads[j], uploads[i]
			})
		},
		newID: uuid.New,
	}
}

// Run walks every page of votable uploads once and creates a vote for each
// eligible in-page pair that has never been matched before. A pair that
// already has a vote, at any point in history, is skipped silently.
//
// Only one run per process may be active; overlapping calls get
// ErrRunInProgress and do no work.
func (s *Service) Run(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.uploadStore == nil || s.voteStore == nil {
		return Report{}, fmt.Errorf("pairing dependencies are not configured")
	}

	var report Report
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.uploadStore.ListVotablePage(ctx, s.cfg.PageSize, offset)
		if err != nil {
			return report, fmt.Errorf("list votable uploads: %w", err)
		}
		if len(page) == 0 {
			break
		}

		report.Pages++
		report.Scanned += len(page)

		s.shuffle(page)

		if err := s.pairPage(ctx, page, &report); err != nil {
			return report, err
		}

		if len(page) < s.cfg.PageSize {
			break
		}
	}

	s.logger.Info("pair generation finished",
		zap.Int("pages", report.Pages),
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("skipped_used", report.SkippedUsed),
	)
	return report, nil
}

func (s *Service) pairPage(ctx context.Context, page []model.Upload, report *Report) error {
	for i := 0; i < len(page); i++ {
		for j := i + 1; j < len(page); j++ {
			a, b := page[i], page[j]
			if !rules.PairEligible(a, b) {
				continue
			}

			used, err := s.voteStore.ExistsForPair(ctx, a.ID, b.ID)
			if err != nil {
				return fmt.Errorf("check pair history: %w", err)
			}
			if used {
				report.SkippedUsed++
				continue
			}

			created, err := s.createPair(ctx, a, b)
			if err != nil {
				return err
			}
			if created {
				report.Created++
			} else {
				report.SkippedRaced++
			}
		}
	}
	return nil
}

// createPair inserts the vote and links it to both uploads in one
// transaction. created=false means another replica inserted the same pair
// between the history check and the insert; the unique pair index catches
// it and the whole link-up is rolled back with it.
func (s *Service) createPair(ctx context.Context, a, b model.Upload) (bool, error) {
	vote := model.Vote{
		ID:         s.newID(),
		ImageOneID: a.ID,
		ImageTwoID: b.ID,
		Gender:     a.Gender,
		AgeType:    a.AgeType,
	}

	var created bool
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ok, err := s.voteStore.Create(txCtx, tx, vote)
		if err != nil {
			return fmt.Errorf("create vote: %w", err)
		}
		if !ok {
			return nil
		}

		if err := s.uploadStore.AppendVote(txCtx, tx, a.ID, vote.ID); err != nil {
			return fmt.Errorf("link vote to upload: %w", err)
		}
		if err := s.uploadStore.AppendVote(txCtx, tx, b.ID, vote.ID); err != nil {
			return fmt.Errorf("link vote to upload: %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

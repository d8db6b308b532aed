package levels

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/domain/model"
	"github.com/kkkhaled/yolel-4/internal/domain/rules"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
)

var (
	ErrInvalidLevel = errors.New("level must be between 1 and 10")
	ErrInvalidRange = errors.New("invalid percentage range")
)

type UploadStore interface {
	ListLevelInputs(ctx context.Context, after uuid.UUID, limit int) ([]pgrepo.LevelInput, error)
	UpdateLevel(ctx context.Context, id uuid.UUID, level *int, percentage float64) error
	ListByLevel(ctx context.Context, level, limit, offset int) ([]model.Upload, int, error)
	ListByRatioRange(ctx context.Context, from, to float64, limit, offset int) ([]model.Upload, int, error)
	ListNeverInteracted(ctx context.Context, limit, offset int) ([]model.Upload, int, error)
}

type Config struct {
	MigrateBatchSize int
	DefaultPageSize  int
	MaxPageSize      int
}

type Page struct {
	Uploads    []model.Upload
	Page       int
	PageSize   int
	TotalItems int
}

// Service recomputes and serves win-ratio levels for uploads.
type Service struct {
	uploadStore UploadStore
	cfg         Config
	logger      *zap.Logger
}

type Dependencies struct {
	UploadStore UploadStore
	Logger      *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MigrateBatchSize <= 0 {
		cfg.MigrateBatchSize = 500
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		uploadStore: deps.UploadStore,
		cfg:         cfg,
		logger:      logger,
	}
}

// Migrate sweeps every upload and rewrites its persisted level and win
// percentage from the current bestVotes/InteractedVotes cardinalities.
// The sweep is keyset-paginated so memory stays flat regardless of table
// size, and it is safe to rerun at any time.
func (s *Service) Migrate(ctx context.Context) (int, error) {
	if s.uploadStore == nil {
		return 0, fmt.Errorf("levels dependencies are not configured")
	}

	var (
		updated int
		cursor  uuid.UUID
	)
	for {
		batch, err := s.uploadStore.ListLevelInputs(ctx, cursor, s.cfg.MigrateBatchSize)
		if err != nil {
			return updated, fmt.Errorf("load level inputs: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, in := range batch {
			percentage := rules.WinRatioPercent(in.BestCount, in.InteractedCount)

			var level *int
			if lvl, ok := rules.ComputeLevel(in.BestCount, in.InteractedCount); ok {
				level = &lvl
			}

			if err := s.uploadStore.UpdateLevel(ctx, in.ID, level, percentage); err != nil {
				return updated, fmt.Errorf("update level for %s: %w", in.ID, err)
			}
			updated++
		}

		cursor = batch[len(batch)-1].ID
		if len(batch) < s.cfg.MigrateBatchSize {
			break
		}
	}

	s.logger.Info("level migration finished", zap.Int("uploads", updated))
	return updated, nil
}

// QueryByLevel lists uploads holding the given persisted level.
func (s *Service) QueryByLevel(ctx context.Context, level, page, size int) (Page, error) {
	if level < rules.MinLevel || level > rules.MaxLevel {
		return Page{}, ErrInvalidLevel
	}
	page, size = s.clampPage(page, size)

	uploads, total, err := s.uploadStore.ListByLevel(ctx, level, size, (page-1)*size)
	if err != nil {
		return Page{}, fmt.Errorf("list uploads by level: %w", err)
	}
	return Page{Uploads: uploads, Page: page, PageSize: size, TotalItems: total}, nil
}

// QueryByRatioRange lists uploads whose live win ratio falls in [from, to).
// Ratios are percentages; the range is half-open so adjacent level buckets
// never overlap.
func (s *Service) QueryByRatioRange(ctx context.Context, from, to float64, page, size int) (Page, error) {
	if from < 0 || from >= to {
		return Page{}, ErrInvalidRange
	}
	page, size = s.clampPage(page, size)

	uploads, total, err := s.uploadStore.ListByRatioRange(ctx, from, to, size, (page-1)*size)
	if err != nil {
		return Page{}, fmt.Errorf("list uploads by ratio: %w", err)
	}
	return Page{Uploads: uploads, Page: page, PageSize: size, TotalItems: total}, nil
}

// QueryByLevelBucket resolves a level key to its percentage bracket and
// queries the live ratio over it. Level 0 is the "no interactions yet"
// bucket: uploads that have never had a vote resolved.
func (s *Service) QueryByLevelBucket(ctx context.Context, level, page, size int) (Page, error) {
	page, size = s.clampPage(page, size)

	if level == 0 {
		uploads, total, err := s.uploadStore.ListNeverInteracted(ctx, size, (page-1)*size)
		if err != nil {
			return Page{}, fmt.Errorf("list uninteracted uploads: %w", err)
		}
		return Page{Uploads: uploads, Page: page, PageSize: size, TotalItems: total}, nil
	}

	bracket, ok := rules.RangeForLevel(level)
	if !ok {
		return Page{}, ErrInvalidLevel
	}

	from := bracket.Min
	if from < 0 {
		from = 0
	}

	uploads, total, err := s.uploadStore.ListByRatioRange(ctx, from, bracket.Max, size, (page-1)*size)
	if err != nil {
		return Page{}, fmt.Errorf("list uploads by level bucket: %w", err)
	}
	return Page{Uploads: uploads, Page: page, PageSize: size, TotalItems: total}, nil
}

func (s *Service) clampPage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}

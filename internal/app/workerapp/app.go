package workerapp

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/config"
	"github.com/kkkhaled/yolel-4/internal/jobs/pairgen"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
	redrepo "github.com/kkkhaled/yolel-4/internal/repo/redis"
	pairingsvc "github.com/kkkhaled/yolel-4/internal/services/pairing"
)

// App runs the pair-generation worker: the periodic job that matches
// votable uploads into fresh votes.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	job      *pairgen.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	lockRepo := redrepo.NewLockRepo(redisClient)

	uploadRepo := pgrepo.NewUploadRepo(pool)
	voteRepo := pgrepo.NewVoteRepo(pool)

	pairingService := pairingsvc.NewService(pairingsvc.Dependencies{
		Pool:        pool,
		UploadStore: uploadRepo,
		VoteStore:   voteRepo,
		Logger:      logger,
	}, pairingsvc.Config{
		PageSize: cfg.Pairing.PageSize,
	})

	job := pairgen.New(pairingService, lockRepo, cfg.Pairing.Interval, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		job:      job,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("pair generation worker started",
		zap.Duration("interval", a.cfg.Pairing.Interval),
		zap.Int("page_size", a.cfg.Pairing.PageSize),
	)

	a.job.RunLoop(ctx)
	return nil
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis client", zap.Error(err))
		}
	}
}

package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/config"
	pgrepo "github.com/kkkhaled/yolel-4/internal/repo/postgres"
	redrepo "github.com/kkkhaled/yolel-4/internal/repo/redis"
	levelssvc "github.com/kkkhaled/yolel-4/internal/services/levels"
	votessvc "github.com/kkkhaled/yolel-4/internal/services/votes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	uploadRepo := pgrepo.NewUploadRepo(pool)
	voteRepo := pgrepo.NewVoteRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)

	votesService := votessvc.NewService(votessvc.Dependencies{
		Pool:        pool,
		VoteStore:   voteRepo,
		UploadStore: uploadRepo,
		UserStore:   userRepo,
		Logger:      log,
	}, votessvc.Config{
		DefaultFeedPageSize: cfg.Feed.DefaultPageSize,
		MaxFeedPageSize:     cfg.Feed.MaxPageSize,
	})
	levelsService := levelssvc.NewService(levelssvc.Dependencies{
		UploadStore: uploadRepo,
		Logger:      log,
	}, levelssvc.Config{
		MigrateBatchSize: cfg.Levels.MigrateBatchSize,
		DefaultPageSize:  cfg.Levels.DefaultPageSize,
		MaxPageSize:      cfg.Levels.MaxPageSize,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		VotesService:  votesService,
		LevelsService: levelsService,
		Logger:        log,
		Config:        cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

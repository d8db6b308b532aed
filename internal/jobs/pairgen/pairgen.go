package pairgen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kkkhaled/yolel-4/internal/services/pairing"
)

const lockKey = "jobs:pairgen:lock"

type generator interface {
	Run(ctx context.Context) (pairing.Report, error)
}

type runLock interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// Job triggers pair generation on a fixed schedule. The Redis run lock keeps
// replicas from generating concurrently: two overlapping runs could both
// pass the pair-history check before either inserts.
type Job struct {
	generator generator
	lock      runLock
	interval  time.Duration
	lockTTL   time.Duration
	newToken  func() string
	now       func() time.Time
	logger    *zap.Logger
}

func New(gen generator, lock runLock, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		generator: gen,
		lock:      lock,
		interval:  interval,
		lockTTL:   interval,
		newToken:  func() string { return uuid.NewString() },
		now:       time.Now,
		logger:    logger,
	}
}

// Run executes one generation pass under the distributed lock. A held lock
// means another replica is already generating; the pass is skipped silently.
func (j *Job) Run(ctx context.Context) error {
	if j.generator == nil {
		return nil
	}

	token := j.newToken()
	if j.lock != nil {
		ok, err := j.lock.Acquire(ctx, lockKey, token, j.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			j.logger.Debug("pair generation lock held elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				j.logger.Warn("failed to release pair generation lock", zap.Error(err))
			}
		}()
	}

	started := j.now()
	report, err := j.generator.Run(ctx)
	if err != nil {
		if errors.Is(err, pairing.ErrRunInProgress) {
			return nil
		}
		return err
	}

	j.logger.Info("pair generation pass completed",
		zap.Duration("took", j.now().Sub(started)),
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
	)
	return nil
}

// RunLoop runs one pass immediately, then on every interval tick until the
// context is cancelled. Failures are logged and the loop keeps going.
func (j *Job) RunLoop(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("pair generation pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("pair generation pass failed", zap.Error(err))
			}
		}
	}
}

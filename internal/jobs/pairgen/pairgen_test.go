package pairgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/kkkhaled/yolel-4/internal/repo/redis"
	"github.com/kkkhaled/yolel-4/internal/services/pairing"
)

type generatorStub struct {
	runs   int
	report pairing.Report
	err    error
}

func (g *generatorStub) Run(context.Context) (pairing.Report, error) {
	g.runs++
	return g.report, g.err
}

func newRedisLock(t *testing.T) (*redrepo.LockRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redrepo.NewLockRepo(client), mr
}

func TestRunGeneratesUnderLockAndReleases(t *testing.T) {
	lock, mr := newRedisLock(t)
	gen := &generatorStub{report: pairing.Report{Created: 3}}

	job := New(gen, lock, time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gen.runs != 1 {
		t.Fatalf("expected one generation pass, got %d", gen.runs)
	}
	if mr.Exists(lockKey) {
		t.Fatalf("lock must be released after the pass")
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if gen.runs != 2 {
		t.Fatalf("released lock must allow the next pass, got %d runs", gen.runs)
	}
}

func TestRunSkipsSilentlyWhenLockHeld(t *testing.T) {
	lock, _ := newRedisLock(t)
	gen := &generatorStub{}

	held, err := lock.Acquire(context.Background(), lockKey, "other-replica", time.Minute)
	if err != nil || !held {
		t.Fatalf("pre-acquire lock: held=%v err=%v", held, err)
	}

	job := New(gen, lock, time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run with held lock must not fail: %v", err)
	}
	if gen.runs != 0 {
		t.Fatalf("held lock must skip generation, got %d runs", gen.runs)
	}
}

func TestRunKeepsForeignLockOnRelease(t *testing.T) {
	lock, mr := newRedisLock(t)
	gen := &generatorStub{}

	job := New(gen, lock, time.Hour, zap.NewNop())
	job.newToken = func() string { return "replica-a" }

	held, err := lock.Acquire(context.Background(), lockKey, "replica-b", time.Minute)
	if err != nil || !held {
		t.Fatalf("pre-acquire lock: held=%v err=%v", held, err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, _ := mr.Get(lockKey); got != "replica-b" {
		t.Fatalf("skipped pass must not disturb the holder's lock, got %q", got)
	}
}

func TestRunTreatsInProcessOverlapAsSkip(t *testing.T) {
	lock, _ := newRedisLock(t)
	gen := &generatorStub{err: pairing.ErrRunInProgress}

	job := New(gen, lock, time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("overlap must be a silent skip, got %v", err)
	}
}

func TestRunSurfacesGeneratorFailure(t *testing.T) {
	lock, mr := newRedisLock(t)

	genErr := errors.New("generation failed")
	gen := &generatorStub{err: genErr}

	job := New(gen, lock, time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); !errors.Is(err, genErr) {
		t.Fatalf("expected generator failure, got %v", err)
	}
	if mr.Exists(lockKey) {
		t.Fatalf("lock must be released even when the pass fails")
	}
}

func TestRunLoopStopsOnContextCancel(t *testing.T) {
	lock, _ := newRedisLock(t)
	gen := &generatorStub{}

	job := New(gen, lock, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}

	if gen.runs < 2 {
		t.Fatalf("loop must run immediately and then on ticks, got %d runs", gen.runs)
	}
}

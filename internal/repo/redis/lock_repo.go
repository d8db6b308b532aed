package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LockRepo is a best-effort distributed run lock. Each lock holds an owner
// token so a release or refresh never touches a lock a different holder
// re-acquired after this one expired.
type LockRepo struct {
	client *goredis.Client
}

func NewLockRepo(client *goredis.Client) *LockRepo {
	return &LockRepo{client: client}
}

// Acquire takes the lock via SET NX. It returns false without error when the
// lock is already held elsewhere.
func (r *LockRepo) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" || token == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid lock payload")
	}

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock only while this holder's token is still in place.
func (r *LockRepo) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" || token == "" {
		return fmt.Errorf("invalid lock payload")
	}

	const script = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`
	if err := r.client.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Refresh extends the TTL while this holder still owns the lock.
func (r *LockRepo) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" || token == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid lock payload")
	}

	const script = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
	res, err := r.client.Eval(ctx, script, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("refresh lock: %w", err)
	}
	return res == 1, nil
}

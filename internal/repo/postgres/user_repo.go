package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kkkhaled/yolel-4/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	if r.pool == nil {
		return model.User{}, ErrUnavailable
	}

	var u model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, points, blocked_users, created_at, updated_at
FROM users
WHERE id = $1
`, id).Scan(&u.ID, &u.Points, &u.BlockedUsers, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

// AdjustPoints applies a signed delta to the user's points and returns the
// new balance. Single atomic statement; points have no floor or cap.
func (r *UserRepo) AdjustPoints(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var points int
	err := tx.QueryRow(ctx, `
UPDATE users
SET
	points = points + $2,
	updated_at = NOW()
WHERE id = $1
RETURNING points
`, id, delta).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("adjust user points: %w", err)
	}

	return points, nil
}

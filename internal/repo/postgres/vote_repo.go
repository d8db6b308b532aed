package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kkkhaled/yolel-4/internal/domain/enums"
	"github.com/kkkhaled/yolel-4/internal/domain/model"
)

var ErrVoteNotFound = errors.New("vote not found")

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

const voteColumns = `
	id,
	image_one_id,
	image_two_id,
	image_one_vote_number,
	image_two_vote_number,
	interacted_users,
	gender,
	age_type,
	created_at,
	updated_at
`

func scanVote(row pgx.Row) (model.Vote, error) {
	var v model.Vote
	err := row.Scan(
		&v.ID,
		&v.ImageOneID,
		&v.ImageTwoID,
		&v.ImageOneVoteNumber,
		&v.ImageTwoVoteNumber,
		&v.InteractedUsers,
		&v.Gender,
		&v.AgeType,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	return v, err
}

// Create inserts a vote with zero counters for an unordered upload pair.
// The pair_key unique index backs the application-level "pair never reused"
// check: a concurrent insert of the same pair in either order hits the
// index, the conflict is swallowed and created=false is returned.
func (r *VoteRepo) Create(ctx context.Context, tx pgx.Tx, vote model.Vote) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if vote.ImageOneID == vote.ImageTwoID {
		return false, fmt.Errorf("vote must connect two distinct uploads")
	}

	result, err := tx.Exec(ctx, `
INSERT INTO votes (
	id,
	image_one_id,
	image_two_id,
	image_one_vote_number,
	image_two_vote_number,
	interacted_users,
	gender,
	age_type,
	created_at,
	updated_at
) VALUES ($1, $2, $3, 0, 0, '{}', $4, $5, NOW(), NOW())
ON CONFLICT (pair_key) DO NOTHING
`, vote.ID, vote.ImageOneID, vote.ImageTwoID, vote.Gender, vote.AgeType)
	if err != nil {
		return false, fmt.Errorf("create vote: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ExistsForPair reports whether any vote ever connected the two uploads, in
// either order, over the full vote history.
func (r *VoteRepo) ExistsForPair(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if r.pool == nil {
		return false, ErrUnavailable
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM votes
	WHERE (image_one_id = $1 AND image_two_id = $2)
	   OR (image_one_id = $2 AND image_two_id = $1)
)
`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pair usage: %w", err)
	}

	return exists, nil
}

func (r *VoteRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Vote, error) {
	if r.pool == nil {
		return model.Vote{}, ErrUnavailable
	}

	v, err := scanVote(r.pool.QueryRow(ctx, `
SELECT`+voteColumns+`
FROM votes
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vote{}, ErrVoteNotFound
		}
		return model.Vote{}, fmt.Errorf("get vote by id: %w", err)
	}

	return v, nil
}

// GetForUpdate loads a vote under a row lock, serializing concurrent
// resolvers of the same pairing for the life of the transaction.
func (r *VoteRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Vote, error) {
	if tx == nil {
		return model.Vote{}, fmt.Errorf("transaction is required")
	}

	v, err := scanVote(tx.QueryRow(ctx, `
SELECT`+voteColumns+`
FROM votes
WHERE id = $1
FOR UPDATE
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vote{}, ErrVoteNotFound
		}
		return model.Vote{}, fmt.Errorf("get vote for update: %w", err)
	}

	return v, nil
}

// ApplyChoice increments the chosen side's counter and records the user in
// interacted_users, returning the post-update vote.
func (r *VoteRepo) ApplyChoice(ctx context.Context, tx pgx.Tx, voteID, userID uuid.UUID, choice enums.Choice) (model.Vote, error) {
	if tx == nil {
		return model.Vote{}, fmt.Errorf("transaction is required")
	}

	column := "image_one_vote_number"
	if choice == enums.ChoiceImageTwo {
		column = "image_two_vote_number"
	}

	v, err := scanVote(tx.QueryRow(ctx, `
UPDATE votes
SET
	`+column+` = `+column+` + 1,
	interacted_users = CASE
		WHEN $2 = ANY(interacted_users) THEN interacted_users
		ELSE array_append(interacted_users, $2)
	END,
	updated_at = NOW()
WHERE id = $1
RETURNING`+voteColumns+`
`, voteID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vote{}, ErrVoteNotFound
		}
		return model.Vote{}, fmt.Errorf("apply vote choice: %w", err)
	}

	return v, nil
}

// ListFeedForUser pages through votes the user can still act on: pairings
// they have not interacted with, not built from their own uploads, and not
// built from uploads owned by anyone they blocked.
func (r *VoteRepo) ListFeedForUser(ctx context.Context, userID uuid.UUID, blocked []uuid.UUID, gender enums.Gender, ageType enums.AgeType, limit, offset int) ([]model.Vote, int, error) {
	if r.pool == nil {
		return nil, 0, ErrUnavailable
	}
	if blocked == nil {
		blocked = []uuid.UUID{}
	}

	const feedFilter = `
NOT ($1 = ANY(v.interacted_users))
AND one.owner_id <> $1 AND two.owner_id <> $1
AND NOT (one.owner_id = ANY($2)) AND NOT (two.owner_id = ANY($2))
AND ($3 = '' OR v.gender = $3)
AND ($4 = '' OR v.age_type = $4)
`

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM votes v
JOIN uploads one ON one.id = v.image_one_id
JOIN uploads two ON two.id = v.image_two_id
WHERE `+feedFilter, userID, blocked, string(gender), string(ageType)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vote feed: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	v.id,
	v.image_one_id,
	v.image_two_id,
	v.image_one_vote_number,
	v.image_two_vote_number,
	v.interacted_users,
	v.gender,
	v.age_type,
	v.created_at,
	v.updated_at
FROM votes v
JOIN uploads one ON one.id = v.image_one_id
JOIN uploads two ON two.id = v.image_two_id
WHERE `+feedFilter+`
ORDER BY v.created_at DESC, v.id
LIMIT $5 OFFSET $6
`, userID, blocked, string(gender), string(ageType), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vote feed: %w", err)
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan feed vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vote feed: %w", err)
	}

	return votes, total, nil
}

// PairRef identifies a deleted vote and the two uploads it connected, so
// the cascade can rebuild the surviving side's vote linkage.
type PairRef struct {
	ID         uuid.UUID
	ImageOneID uuid.UUID
	ImageTwoID uuid.UUID
}

// DeleteByIDs removes votes as part of an upload deletion cascade and
// returns the pair references of everything it deleted.
func (r *VoteRepo) DeleteByIDs(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]PairRef, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
DELETE FROM votes
WHERE id = ANY($1)
RETURNING id, image_one_id, image_two_id
`, ids)
	if err != nil {
		return nil, fmt.Errorf("delete votes: %w", err)
	}
	defer rows.Close()

	var refs []PairRef
	for rows.Next() {
		var ref PairRef
		if err := rows.Scan(&ref.ID, &ref.ImageOneID, &ref.ImageTwoID); err != nil {
			return nil, fmt.Errorf("scan deleted vote: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted votes: %w", err)
	}

	return refs, nil
}

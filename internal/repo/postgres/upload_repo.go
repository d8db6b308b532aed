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

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) *UploadRepo {
	return &UploadRepo{pool: pool}
}

// LevelInput is the streamed projection the level migration consumes: just
// the array cardinalities, never the arrays themselves.
type LevelInput struct {
	ID              uuid.UUID
	BestCount       int
	InteractedCount int
}

const uploadColumns = `
	id,
	owner_id,
	gender,
	age_type,
	is_allow_for_vote,
	is_admin_created,
	votes,
	interacted_votes,
	best_votes,
	level,
	level_percentage,
	created_at,
	updated_at
`

func scanUpload(row pgx.Row) (model.Upload, error) {
	var u model.Upload
	err := row.Scan(
		&u.ID,
		&u.OwnerID,
		&u.Gender,
		&u.AgeType,
		&u.IsAllowForVote,
		&u.IsAdminCreated,
		&u.Votes,
		&u.InteractedVotes,
		&u.BestVotes,
		&u.Level,
		&u.LevelPercentage,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *UploadRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Upload, error) {
	if r.pool == nil {
		return model.Upload{}, ErrUnavailable
	}

	u, err := scanUpload(r.pool.QueryRow(ctx, `
SELECT`+uploadColumns+`
FROM uploads
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Upload{}, ErrUploadNotFound
		}
		return model.Upload{}, fmt.Errorf("get upload by id: %w", err)
	}

	return u, nil
}

// ListVotablePage fetches one fixed-size page of uploads open for voting.
// The scan is a plain snapshot read: uploads flipping eligibility mid-scan
// are tolerated, not locked against.
func (r *UploadRepo) ListVotablePage(ctx context.Context, limit, offset int) ([]model.Upload, error) {
	if r.pool == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid page size %d", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid page offset %d", offset)
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+uploadColumns+`
FROM uploads
WHERE is_allow_for_vote
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list votable uploads: %w", err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan votable upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votable uploads: %w", err)
	}

	return uploads, nil
}

// ListLevelInputs streams level-migration inputs in id order, starting after
// the given cursor. Keyset pagination keeps the sweep memory-bounded.
func (r *UploadRepo) ListLevelInputs(ctx context.Context, after uuid.UUID, limit int) ([]LevelInput, error) {
	if r.pool == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", limit)
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	cardinality(best_votes),
	cardinality(interacted_votes)
FROM uploads
WHERE id > $1
ORDER BY id
LIMIT $2
`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list level inputs: %w", err)
	}
	defer rows.Close()

	var inputs []LevelInput
	for rows.Next() {
		var in LevelInput
		if err := rows.Scan(&in.ID, &in.BestCount, &in.InteractedCount); err != nil {
			return nil, fmt.Errorf("scan level input: %w", err)
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate level inputs: %w", err)
	}

	return inputs, nil
}

// AppendVote links a freshly created vote into the upload's votes list.
func (r *UploadRepo) AppendVote(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE uploads
SET
	votes = array_append(votes, $2),
	updated_at = NOW()
WHERE id = $1 AND NOT ($2 = ANY(votes))
`, uploadID, voteID)
	if err != nil {
		return fmt.Errorf("append vote to upload: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the upload is gone or the vote is already linked; only the
		// former is an error.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM uploads WHERE id = $1)`, uploadID).Scan(&exists); err != nil {
			return fmt.Errorf("check upload existence: %w", err)
		}
		if !exists {
			return ErrUploadNotFound
		}
	}
	return nil
}

// MarkVoteInteracted adds the vote id to interacted_votes once the pairing
// has received its first choice. Idempotent.
func (r *UploadRepo) MarkVoteInteracted(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE uploads
SET
	interacted_votes = array_append(interacted_votes, $2),
	updated_at = NOW()
WHERE id = $1 AND NOT ($2 = ANY(interacted_votes))
`, uploadID, voteID); err != nil {
		return fmt.Errorf("mark vote interacted: %w", err)
	}
	return nil
}

// SetBestVote adds or removes a vote id from the upload's best_votes set
// depending on whether the upload currently wins that pairing. Both
// directions are single atomic statements, safe under concurrent resolvers.
func (r *UploadRepo) SetBestVote(ctx context.Context, tx pgx.Tx, uploadID, voteID uuid.UUID, won bool) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if won {
		if _, err := tx.Exec(ctx, `
UPDATE uploads
SET
	best_votes = array_append(best_votes, $2),
	updated_at = NOW()
WHERE id = $1 AND NOT ($2 = ANY(best_votes))
`, uploadID, voteID); err != nil {
			return fmt.Errorf("add best vote: %w", err)
		}
		return nil
	}

	if _, err := tx.Exec(ctx, `
UPDATE uploads
SET
	best_votes = array_remove(best_votes, $2),
	updated_at = NOW()
WHERE id = $1 AND $2 = ANY(best_votes)
`, uploadID, voteID); err != nil {
		return fmt.Errorf("remove best vote: %w", err)
	}
	return nil
}

// UpdateLevel persists the recomputed level bucket and win ratio. A nil
// level clears the column (rank undefined until first interaction).
func (r *UploadRepo) UpdateLevel(ctx context.Context, id uuid.UUID, level *int, percentage float64) error {
	if r.pool == nil {
		return ErrUnavailable
	}

	result, err := r.pool.Exec(ctx, `
UPDATE uploads
SET
	level = $2,
	level_percentage = $3,
	updated_at = NOW()
WHERE id = $1
`, id, level, percentage)
	if err != nil {
		return fmt.Errorf("update upload level: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// RemoveVoteRefs strips a set of vote ids from all three vote lists of an
// upload, as part of the cascade when a paired upload is deleted.
func (r *UploadRepo) RemoveVoteRefs(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, voteIDs []uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if len(voteIDs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
UPDATE uploads
SET
	votes = ARRAY(SELECT v FROM unnest(votes) AS v WHERE NOT (v = ANY($2))),
	interacted_votes = ARRAY(SELECT v FROM unnest(interacted_votes) AS v WHERE NOT (v = ANY($2))),
	best_votes = ARRAY(SELECT v FROM unnest(best_votes) AS v WHERE NOT (v = ANY($2))),
	updated_at = NOW()
WHERE id = $1
`, uploadID, voteIDs); err != nil {
		return fmt.Errorf("remove vote refs from upload: %w", err)
	}
	return nil
}

// ListByLevel pages through uploads holding a given persisted level.
func (r *UploadRepo) ListByLevel(ctx context.Context, level, limit, offset int) ([]model.Upload, int, error) {
	if r.pool == nil {
		return nil, 0, ErrUnavailable
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM uploads WHERE level = $1
`, level).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count uploads by level: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+uploadColumns+`
FROM uploads
WHERE level = $1
ORDER BY level_percentage DESC, created_at DESC, id
LIMIT $2 OFFSET $3
`, level, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list uploads by level: %w", err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan upload by level: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate uploads by level: %w", err)
	}

	return uploads, total, nil
}

// ListByRatioRange pages through uploads whose current win ratio falls in
// the half-open percent range [from, to). The ratio is derived from the
// persisted arrays on the fly so the filter never trusts a stale level
// column.
func (r *UploadRepo) ListByRatioRange(ctx context.Context, from, to float64, limit, offset int) ([]model.Upload, int, error) {
	if r.pool == nil {
		return nil, 0, ErrUnavailable
	}

	const ratioFilter = `
cardinality(interacted_votes) > 0
AND cardinality(best_votes)::float8 / cardinality(interacted_votes) * 100 >= $1
AND cardinality(best_votes)::float8 / cardinality(interacted_votes) * 100 < $2
`

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM uploads WHERE `+ratioFilter, from, to).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count uploads by ratio range: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+uploadColumns+`
FROM uploads
WHERE `+ratioFilter+`
ORDER BY cardinality(best_votes)::float8 / cardinality(interacted_votes) DESC, created_at DESC, id
LIMIT $3 OFFSET $4
`, from, to, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list uploads by ratio range: %w", err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan upload by ratio range: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate uploads by ratio range: %w", err)
	}

	return uploads, total, nil
}

// ListNeverInteracted pages through uploads whose pairings have not received
// a single choice yet; the level-keyed search treats these as "level 0".
func (r *UploadRepo) ListNeverInteracted(ctx context.Context, limit, offset int) ([]model.Upload, int, error) {
	if r.pool == nil {
		return nil, 0, ErrUnavailable
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM uploads WHERE cardinality(interacted_votes) = 0
`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count never-interacted uploads: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+uploadColumns+`
FROM uploads
WHERE cardinality(interacted_votes) = 0
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list never-interacted uploads: %w", err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan never-interacted upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate never-interacted uploads: %w", err)
	}

	return uploads, total, nil
}

package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FrameDigest is the journal record for one simulated frame.
type FrameDigest struct {
	Frame    uint64
	Digest   uint64
	Entities int
}

// MatchRepo stores match rows and their per-frame digests.
type MatchRepo struct {
	db *DB
}

func NewMatchRepo(db *DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Begin records a new match.
func (r *MatchRepo) Begin(ctx context.Context, id uuid.UUID, frame time.Duration, units int) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO matches (id, frame_ms, units) VALUES ($1, $2, $3)`,
		id, frame.Milliseconds(), units,
	)
	if err != nil {
		return fmt.Errorf("begin match %s: %w", id, err)
	}
	return nil
}

// Finish stamps the match with its final frame count and result.
func (r *MatchRepo) Finish(ctx context.Context, id uuid.UUID, frames uint64, result string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE matches SET finished_at = now(), frames = $2, result = $3 WHERE id = $1`,
		id, int64(frames), result,
	)
	if err != nil {
		return fmt.Errorf("finish match %s: %w", id, err)
	}
	return nil
}

// WriteDigests bulk-inserts a batch with COPY.
func (r *MatchRepo) WriteDigests(ctx context.Context, id uuid.UUID, batch []FrameDigest) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"frame_digests"},
		[]string{"match_id", "frame", "digest", "entities"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			d := batch[i]
			// digests are stored bit-for-bit in a signed BIGINT
			return []any{id, int64(d.Frame), int64(d.Digest), int32(d.Entities)}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("write %d digests for %s: %w", len(batch), id, err)
	}
	return n, nil
}

// Digests loads the recorded digests for frames in [from, to].
func (r *MatchRepo) Digests(ctx context.Context, id uuid.UUID, from, to uint64) ([]FrameDigest, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT frame, digest, entities FROM frame_digests
		 WHERE match_id = $1 AND frame BETWEEN $2 AND $3
		 ORDER BY frame`,
		id, int64(from), int64(to),
	)
	if err != nil {
		return nil, fmt.Errorf("query digests for %s: %w", id, err)
	}
	defer rows.Close()

	var out []FrameDigest
	for rows.Next() {
		var frame, digest int64
		var entities int32
		if err := rows.Scan(&frame, &digest, &entities); err != nil {
			return nil, err
		}
		out = append(out, FrameDigest{Frame: uint64(frame), Digest: uint64(digest), Entities: int(entities)})
	}
	return out, rows.Err()
}

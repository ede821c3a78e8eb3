package storage

import (
	"context"
	"database/sql"
	"time"

	pq "github.com/lib/pq"
)

type PollRepo struct{ db *sql.DB }

func NewPollRepo(db *sql.DB) *PollRepo { return &PollRepo{db: db} }

func (r *PollRepo) Create(ctx context.Context, creatorID, question string, options []string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
INSERT INTO polls (creator_id, question, options)
VALUES ($1,$2,$3)
RETURNING id
`, creatorID, question, pq.Array(options)).Scan(&id)
	return id, err
}

func (r *PollRepo) Get(ctx context.Context, id int64) (PollRow, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, creator_id, question, options, created_at, closed_at
  FROM polls
 WHERE id = $1
`, id)
	var p PollRow
	err := row.Scan(&p.ID, &p.CreatorID, &p.Question, pq.Array(&p.Options), &p.CreatedAt, &p.ClosedAt)
	if err == sql.ErrNoRows {
		return PollRow{}, ErrNotFound
	}
	return p, err
}

// Vote: un voto por usuario por poll; repetir cambia la opción.
func (r *PollRepo) Vote(ctx context.Context, pollID int64, userID string, option int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO poll_votes (poll_id, user_id, option_index)
VALUES ($1,$2,$3)
ON CONFLICT (poll_id, user_id) DO UPDATE SET
  option_index = EXCLUDED.option_index
`, pollID, userID, option)
	return err
}

func (r *PollRepo) Close(ctx context.Context, pollID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE polls
   SET closed_at = $2
 WHERE id = $1 AND closed_at IS NULL
`, pollID, at)
	return err
}

// Tally: votos por índice de opción.
func (r *PollRepo) Tally(ctx context.Context, pollID int64) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT option_index, COUNT(*)
  FROM poll_votes
 WHERE poll_id = $1
 GROUP BY option_index
`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]int{}
	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, err
		}
		out[idx] = n
	}
	return out, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"errors"

	pq "github.com/lib/pq"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

var ErrNotFound = errors.New("not found")

// Upsert por user_id; primer contacto crea la fila con rol 'user'.
func (r *UserRepo) Upsert(ctx context.Context, u UserRow) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users
  (user_id, nick, role, banned, ban_reason, mute_until)
VALUES
  ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET
  nick       = EXCLUDED.nick,
  role       = EXCLUDED.role,
  banned     = EXCLUDED.banned,
  ban_reason = EXCLUDED.ban_reason,
  mute_until = EXCLUDED.mute_until,
  updated_at = now()
`, u.UserID, u.Nick, u.Role, u.Banned, u.BanReason, u.MuteUntil)
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (UserRow, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, nick, role, banned, ban_reason, mute_until, joined_at, updated_at
  FROM users
 WHERE user_id = $1
`, userID)
	var u UserRow
	err := row.Scan(&u.UserID, &u.Nick, &u.Role, &u.Banned, &u.BanReason, &u.MuteUntil, &u.JoinedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return UserRow{}, ErrNotFound
	}
	return u, err
}

// NicksByIDs: devuelve mapa user_id -> nick para armar view_logs en una
// sola consulta.
func (r *UserRepo) NicksByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, nick
  FROM users
 WHERE user_id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, nick string
		if err := rows.Scan(&id, &nick); err != nil {
			return nil, err
		}
		out[id] = nick
	}
	return out, rows.Err()
}

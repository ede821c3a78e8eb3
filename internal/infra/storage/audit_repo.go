package storage

import (
	"context"
	"database/sql"
)

type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append es insert puro: la tabla no tiene UPDATE ni DELETE desde el bot.
// El seq lo asigna el servicio (dueño único del contador).
func (r *AuditRepo) Append(ctx context.Context, row AuditRow) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_log (seq, at, target_id, payload)
VALUES ($1,$2,$3,$4)
`, row.Seq, row.At, row.TargetID, row.Payload)
	return err
}

// ListByTarget: últimas `limit` entradas del target, más recientes primero.
func (r *AuditRepo) ListByTarget(ctx context.Context, targetID string, limit int) ([]AuditRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, at, target_id, payload
  FROM audit_log
 WHERE target_id = $1
 ORDER BY seq DESC
 LIMIT $2
`, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var a AuditRow
		if err := rows.Scan(&a.Seq, &a.At, &a.TargetID, &a.Payload); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Bounds devuelve (count, minSeq, maxSeq) del log. La retención del
// janitor poda por abajo, así que la contigüidad se chequea dentro del
// rango retenido: count < max-min+1 significa hueco (pérdida o
// manipulación) y el query path lo avisa.
func (r *AuditRepo) Bounds(ctx context.Context) (int64, uint64, uint64, error) {
	var count int64
	var min, max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(seq), MAX(seq) FROM audit_log
`).Scan(&count, &min, &max)
	if err != nil {
		return 0, 0, 0, err
	}
	return count, uint64(min.Int64), uint64(max.Int64), nil
}

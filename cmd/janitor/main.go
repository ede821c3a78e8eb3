package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Retención del audit log: borra entradas más viejas que
// AUDIT_RETENTION_DAYS (default 30). La tabla es append-only desde el
// bot; la poda vive acá afuera a propósito.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	days := 30
	if v := os.Getenv("AUDIT_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := pool.Exec(cctx,
		`DELETE FROM audit_log WHERE at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return fmt.Sprintf("purge: %v", err), nil
	}

	// cerrar también encuestas abandonadas hace más de una semana
	_, _ = pool.Exec(cctx,
		`UPDATE polls SET closed_at = now() WHERE closed_at IS NULL AND created_at < now() - INTERVAL '7 days'`)

	return fmt.Sprintf("ok: %d entradas purgadas", tag.RowsAffected()), nil
}

func main() { lambda.Start(handler) }

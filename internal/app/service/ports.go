package service

import (
	"context"
	"time"

	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.UserRepo
type UserStore interface {
	Upsert(ctx context.Context, u storage.UserRow) error
	Get(ctx context.Context, userID string) (storage.UserRow, error)
	NicksByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// Lo implementa internal/infra/storage.AuditRepo
type AuditStore interface {
	Append(ctx context.Context, row storage.AuditRow) error
	ListByTarget(ctx context.Context, targetID string, limit int) ([]storage.AuditRow, error)
	Bounds(ctx context.Context) (count int64, minSeq, maxSeq uint64, err error)
}

// Lo implementa internal/infra/storage.PollRepo
type PollStore interface {
	Create(ctx context.Context, creatorID, question string, options []string) (int64, error)
	Get(ctx context.Context, id int64) (storage.PollRow, error)
	Vote(ctx context.Context, pollID int64, userID string, option int) error
	Close(ctx context.Context, pollID int64, at time.Time) error
	Tally(ctx context.Context, pollID int64) (map[int]int, error)
}

// Lo implementa internal/infra/crypto.Sealer. Capacidad inyectada: el
// ciclo de vida de la clave (carga, rotación) no es asunto del core.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

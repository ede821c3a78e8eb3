package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/k-luch/chatguard-bot/internal/domain"
	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

// AuditLog es el único dueño del contador de secuencia y del uso de la
// clave. Append nunca descarta una entrada en silencio: si el insert
// falla, el comando que lo disparó falla con él.
type AuditLog struct {
	log    *slog.Logger
	store  AuditStore
	sealer Sealer

	mu      sync.Mutex
	nextSeq uint64
}

// payload es lo que viaja cifrado dentro de la fila.
type auditPayload struct {
	ActorID string        `json:"actor_id"`
	Action  domain.Action `json:"action"`
	Detail  string        `json:"detail,omitempty"`
}

// NewAuditLog retoma la secuencia desde el máximo persistido. Un storage
// inalcanzable acá es fatal de arranque, no por comando.
func NewAuditLog(ctx context.Context, log *slog.Logger, store AuditStore, sealer Sealer) (*AuditLog, error) {
	_, _, max, err := store.Bounds(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "audit bounds", Err: err}
	}
	return &AuditLog{log: log, store: store, sealer: sealer, nextSeq: max + 1}, nil
}

// Append asigna seq bajo lock y escribe fuera de él: la asignación se
// serializa, el insert no frena a escritores de otros comandos. Un seq
// quemado por un insert fallido queda como hueco que Query reporta.
func (a *AuditLog) Append(ctx context.Context, e domain.AuditEntry) (uint64, error) {
	raw, err := json.Marshal(auditPayload{ActorID: e.ActorID, Action: e.Action, Detail: e.Detail})
	if err != nil {
		return 0, fmt.Errorf("audit marshal: %w", err)
	}
	sealed, err := a.sealer.Seal(raw)
	if err != nil {
		return 0, fmt.Errorf("audit seal: %w", err)
	}

	a.mu.Lock()
	seq := a.nextSeq
	a.nextSeq++
	a.mu.Unlock()

	row := storage.AuditRow{Seq: seq, At: e.At, TargetID: e.TargetID, Payload: sealed}
	if err := a.store.Append(ctx, row); err != nil {
		return 0, &domain.StorageError{Op: "audit append", Err: err}
	}

	a.log.Info("audit", "seq", seq, "action", e.Action, "actor", e.ActorID, "target", e.TargetID)
	return seq, nil
}

// Query devuelve las últimas `limit` entradas del target, más recientes
// primero, descifrando al leer. Una entrada que no descifra corta la
// consulta con ErrDecryption: clave equivocada o corrupción, jamás se
// saltea. Un hueco en la secuencia global se loguea como warning.
func (a *AuditLog) Query(ctx context.Context, targetID string, limit int) ([]domain.AuditEntry, error) {
	rows, err := a.store.ListByTarget(ctx, targetID, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "audit query", Err: err}
	}

	out := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		raw, err := a.sealer.Open(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("seq %d: %w", row.Seq, err)
		}
		var p auditPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errors.Join(domain.ErrDecryption, err)
		}
		out = append(out, domain.AuditEntry{
			Seq:      row.Seq,
			At:       row.At,
			ActorID:  p.ActorID,
			Action:   p.Action,
			TargetID: row.TargetID,
			Detail:   p.Detail,
		})
	}

	// contigüidad dentro del rango retenido (el janitor poda por abajo)
	if count, min, max, err := a.store.Bounds(ctx); err == nil && count > 0 && uint64(count) != max-min+1 {
		a.log.Warn("audit log con huecos de secuencia", "count", count, "min_seq", min, "max_seq", max)
	}
	return out, nil
}

// helper para armar entradas con timestamp del comando
func entry(at time.Time, actorID string, action domain.Action, targetID, detail string) domain.AuditEntry {
	return domain.AuditEntry{At: at, ActorID: actorID, Action: action, TargetID: targetID, Detail: detail}
}

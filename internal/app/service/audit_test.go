package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-luch/chatguard-bot/internal/domain"
	"github.com/k-luch/chatguard-bot/internal/infra/crypto"
	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestAuditRoundTrip(t *testing.T) {
	store := newMemAuditStore()
	sealer, err := crypto.New(testKey(1))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, sealer)
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seq, err := a.Append(ctx, domain.AuditEntry{
		At: at, ActorID: "admin", Action: domain.ActionBan, TargetID: "pleb", Detail: "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	got, err := a.Query(ctx, "pleb", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, "admin", got[0].ActorID)
	assert.Equal(t, domain.ActionBan, got[0].Action)
	assert.Equal(t, "pleb", got[0].TargetID)
	assert.Equal(t, "spam", got[0].Detail)
	assert.True(t, got[0].At.Equal(at))
}

func TestAuditWrongKeyFailsClosed(t *testing.T) {
	store := newMemAuditStore()
	sealer, err := crypto.New(testKey(1))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, sealer)
	require.NoError(t, err)
	_, err = a.Append(ctx, domain.AuditEntry{At: time.Now(), ActorID: "admin", Action: domain.ActionMute, TargetID: "pleb"})
	require.NoError(t, err)

	// misma tabla, otra clave: jamás basura plausible
	other, err := crypto.New(testKey(2))
	require.NoError(t, err)
	b, err := NewAuditLog(ctx, testLogger(), store, other)
	require.NoError(t, err)

	_, err = b.Query(ctx, "pleb", 1)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestAuditSequenceIsMonotonic(t *testing.T) {
	store := newMemAuditStore()
	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, plainSealer{})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		seq, err := a.Append(ctx, domain.AuditEntry{At: time.Now(), ActorID: "x", Action: domain.ActionMute, TargetID: "t"})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}
}

func TestAuditResumesSequenceAfterRestart(t *testing.T) {
	store := newMemAuditStore()
	ctx := context.Background()

	a, err := NewAuditLog(ctx, testLogger(), store, plainSealer{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := a.Append(ctx, domain.AuditEntry{At: time.Now(), ActorID: "x", Action: domain.ActionMute, TargetID: "t"})
		require.NoError(t, err)
	}

	// "restart": un AuditLog nuevo sobre el mismo store retoma en 4
	b, err := NewAuditLog(ctx, testLogger(), store, plainSealer{})
	require.NoError(t, err)
	seq, err := b.Append(ctx, domain.AuditEntry{At: time.Now(), ActorID: "x", Action: domain.ActionMute, TargetID: "t"})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)
}

func TestAuditAppendFailureSurfaces(t *testing.T) {
	store := newMemAuditStore()
	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, plainSealer{})
	require.NoError(t, err)

	store.failAppend = errors.New("conexión perdida")
	_, err = a.Append(ctx, domain.AuditEntry{At: time.Now(), ActorID: "x", Action: domain.ActionBan, TargetID: "t"})
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "audit append", se.Op)
}

func TestAuditQueryNewestFirstWithLimit(t *testing.T) {
	store := newMemAuditStore()
	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, plainSealer{})
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := a.Append(ctx, domain.AuditEntry{At: base.Add(time.Duration(i) * time.Minute), ActorID: "x", Action: domain.ActionMute, TargetID: "t"})
		require.NoError(t, err)
	}
	_, err = a.Append(ctx, domain.AuditEntry{At: base, ActorID: "x", Action: domain.ActionMute, TargetID: "otro"})
	require.NoError(t, err)

	got, err := a.Query(ctx, "t", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(5), got[0].Seq)
	assert.Equal(t, uint64(4), got[1].Seq)
	assert.Equal(t, uint64(3), got[2].Seq)
}

func TestAuditTruncatedPayloadFailsClosed(t *testing.T) {
	store := newMemAuditStore()
	sealer, err := crypto.New(testKey(1))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := NewAuditLog(ctx, testLogger(), store, sealer)
	require.NoError(t, err)

	store.rows = append(store.rows, storage.AuditRow{Seq: 1, At: time.Now(), TargetID: "t", Payload: []byte("corto")})
	_, err = a.Query(ctx, "t", 1)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

// fakes en memoria para los ports de storage; mismo contrato que los
// repos de postgres, incluido ErrNotFound.

type memUserStore struct {
	mu   sync.Mutex
	rows map[string]storage.UserRow
}

func newMemUserStore() *memUserStore {
	return &memUserStore{rows: map[string]storage.UserRow{}}
}

func (m *memUserStore) Upsert(_ context.Context, u storage.UserRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.rows[u.UserID]; ok {
		u.JoinedAt = prev.JoinedAt
	}
	m.rows[u.UserID] = u
	return nil
}

func (m *memUserStore) Get(_ context.Context, userID string) (storage.UserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID]
	if !ok {
		return storage.UserRow{}, storage.ErrNotFound
	}
	return row, nil
}

func (m *memUserStore) NicksByIDs(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, id := range ids {
		if row, ok := m.rows[id]; ok {
			out[id] = row.Nick
		}
	}
	return out, nil
}

type memAuditStore struct {
	mu   sync.Mutex
	rows []storage.AuditRow

	failAppend error
}

func newMemAuditStore() *memAuditStore { return &memAuditStore{} }

func (m *memAuditStore) Append(_ context.Context, row storage.AuditRow) error {
	if m.failAppend != nil {
		return m.failAppend
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

func (m *memAuditStore) ListByTarget(_ context.Context, targetID string, limit int) ([]storage.AuditRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.AuditRow
	for _, r := range m.rows {
		if r.TargetID == targetID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAuditStore) Bounds(_ context.Context) (int64, uint64, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return 0, 0, 0, nil
	}
	min, max := m.rows[0].Seq, m.rows[0].Seq
	for _, r := range m.rows[1:] {
		if r.Seq < min {
			min = r.Seq
		}
		if r.Seq > max {
			max = r.Seq
		}
	}
	return int64(len(m.rows)), min, max, nil
}

type memPollStore struct {
	mu     sync.Mutex
	nextID int64
	polls  map[int64]storage.PollRow
	votes  map[int64]map[string]int
}

func newMemPollStore() *memPollStore {
	return &memPollStore{nextID: 1, polls: map[int64]storage.PollRow{}, votes: map[int64]map[string]int{}}
}

func (m *memPollStore) Create(_ context.Context, creatorID, question string, options []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.polls[id] = storage.PollRow{ID: id, CreatorID: creatorID, Question: question, Options: options, CreatedAt: time.Now()}
	m.votes[id] = map[string]int{}
	return id, nil
}

func (m *memPollStore) Get(_ context.Context, id int64) (storage.PollRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return storage.PollRow{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *memPollStore) Vote(_ context.Context, pollID int64, userID string, option int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[pollID][userID] = option
	return nil
}

func (m *memPollStore) Close(_ context.Context, pollID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.polls[pollID]
	if p.ClosedAt == nil {
		p.ClosedAt = &at
		m.polls[pollID] = p
	}
	return nil
}

func (m *memPollStore) Tally(_ context.Context, pollID int64) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]int{}
	for _, opt := range m.votes[pollID] {
		out[opt]++
	}
	return out, nil
}

// plainSealer deja el payload en claro; suficiente para los tests del
// servicio (el cifrado real se prueba en internal/infra/crypto).
type plainSealer struct{}

func (plainSealer) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (plainSealer) Open(sealed []byte) ([]byte, error)    { return sealed, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stack arma el grafo de servicios completo sobre los fakes.
type stack struct {
	users  *memUserStore
	audits *memAuditStore
	polls  *memPollStore

	audit    *AuditLog
	dir      *Directory
	votes    *VoteSessions
	pollsSvc *Polls
	limiter  *RateLimiter
	engine   *Engine
}

func newStack(t interface{ Fatal(...any) }, threshold int, window time.Duration) *stack {
	users := newMemUserStore()
	audits := newMemAuditStore()
	pollStore := newMemPollStore()

	log := testLogger()
	audit, err := NewAuditLog(context.Background(), log, audits, plainSealer{})
	if err != nil {
		t.Fatal(err)
	}
	dir := NewDirectory(log, users, audit, 30, 1440)
	votes := NewVoteSessions(log, dir, audit, threshold, window)
	pollsSvc := NewPolls(log, pollStore)
	limiter := NewRateLimiter(map[CommandClass]ClassLimit{
		ClassWrite: {PerSecond: 100, Burst: 100},
		ClassRead:  {PerSecond: 100, Burst: 100},
	})
	engine := NewEngine(log, dir, votes, pollsSvc, limiter, audit, "reglas", "acerca de")

	return &stack{
		users: users, audits: audits, polls: pollStore,
		audit: audit, dir: dir, votes: votes, pollsSvc: pollsSvc,
		limiter: limiter, engine: engine,
	}
}

// seed crea un usuario con rol dado, directo contra el fake.
func (s *stack) seed(id string, role string) {
	s.users.rows[id] = storage.UserRow{UserID: id, Nick: id, Role: role, JoinedAt: time.Now()}
}

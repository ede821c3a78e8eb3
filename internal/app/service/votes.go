package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/k-luch/chatguard-bot/internal/domain"
)

// VoteSessions: máquina de estados del vote_mute. Una sesión por target
// como máximo; threshold y duración del mute quedan congelados al
// abrirla (un cambio de rol o de default a mitad de votación no la
// invalida). Estado vivo en memoria: las sesiones son efímeras y
// expiran solas.
type VoteSessions struct {
	log   *slog.Logger
	dir   *Directory
	audit *AuditLog
	locks *keyedMutex

	mu       sync.Mutex
	sessions map[string]*voteSession

	threshold int
	window    time.Duration
}

type voteSession struct {
	targetID    string
	openedAt    time.Time
	expiresAt   time.Time
	votes       map[string]struct{}
	threshold   int
	muteMinutes int
}

func NewVoteSessions(log *slog.Logger, dir *Directory, audit *AuditLog, threshold int, window time.Duration) *VoteSessions {
	return &VoteSessions{
		log:       log,
		dir:       dir,
		audit:     audit,
		locks:     newKeyedMutex(),
		sessions:  map[string]*voteSession{},
		threshold: threshold,
		window:    window,
	}
}

// CastResult le da al transporte qué mostrar: progreso o resolución.
type CastResult struct {
	Votes     int
	Threshold int
	Resolved  bool
	// minutos de mute aplicados si Resolved
	MuteMinutes int
}

// Open abre una sesión para el target. Falla con AlreadyOpen si ya hay
// una abierta, y con TargetIneligible si el target está baneado, muteado
// o es moderador/admin.
func (v *VoteSessions) Open(ctx context.Context, targetID string, now time.Time) error {
	unlock := v.locks.Lock(targetID)
	defer unlock()
	return v.open(ctx, targetID, now)
}

func (v *VoteSessions) open(ctx context.Context, targetID string, now time.Time) error {
	v.mu.Lock()
	_, exists := v.sessions[targetID]
	v.mu.Unlock()
	if exists {
		return domain.ErrAlreadyOpen
	}

	target, err := v.dir.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Banned || target.Muted(now) || target.Role.AtLeast(domain.RoleModerator) {
		return domain.ErrTargetIneligible
	}

	s := &voteSession{
		targetID:    targetID,
		openedAt:    now,
		expiresAt:   now.Add(v.window),
		votes:       map[string]struct{}{},
		threshold:   v.threshold,
		muteMinutes: v.dir.DefaultMuteMinutes(), // snapshot: set_mute_duration no aplica retroactivo
	}
	v.mu.Lock()
	v.sessions[targetID] = s
	v.mu.Unlock()
	v.log.Info("sesión de vote_mute abierta", "target", targetID, "threshold", s.threshold, "expira", s.expiresAt)
	return nil
}

// Cast registra un voto; abre la sesión si es el primer vote_mute
// contra el target. La expiración se evalúa acá, perezosa: primera en
// orden, y con `now` estrictamente después de expiresAt (un voto que
// cae justo en el límite todavía cuenta).
func (v *VoteSessions) Cast(ctx context.Context, voterID, targetID string, now time.Time) (CastResult, error) {
	if voterID == targetID {
		return CastResult{}, domain.ErrSelfVote
	}

	voter, err := v.dir.Get(ctx, voterID)
	if err != nil {
		return CastResult{}, err
	}
	if voter.Banned || voter.Muted(now) {
		return CastResult{}, domain.ErrVoterIneligible
	}

	unlock := v.locks.Lock(targetID)
	defer unlock()

	v.mu.Lock()
	s, ok := v.sessions[targetID]
	v.mu.Unlock()
	if !ok {
		if err := v.open(ctx, targetID, now); err != nil {
			// contra un target inelegible no se abre sesión nueva; para
			// el votante eso es "no hay sesión", no un open fallido
			if errors.Is(err, domain.ErrTargetIneligible) {
				return CastResult{}, domain.ErrNoOpenSession
			}
			return CastResult{}, err
		}
		v.mu.Lock()
		s = v.sessions[targetID]
		v.mu.Unlock()
	}

	if now.After(s.expiresAt) {
		// transición a expirada antes de reportar el error; no produce mute
		v.remove(targetID)
		v.log.Info("sesión de vote_mute expirada", "target", targetID, "votos", len(s.votes))
		return CastResult{}, domain.ErrSessionExpired
	}

	if _, dup := s.votes[voterID]; dup {
		return CastResult{Votes: len(s.votes), Threshold: s.threshold}, domain.ErrAlreadyVoted
	}

	s.votes[voterID] = struct{}{}
	detail := fmt.Sprintf("votos: %d/%d", len(s.votes), s.threshold)
	if _, err := v.audit.Append(ctx, entry(now, voterID, domain.ActionVoteCast, targetID, detail)); err != nil {
		// sin registro no hay voto
		delete(s.votes, voterID)
		return CastResult{}, err
	}

	res := CastResult{Votes: len(s.votes), Threshold: s.threshold}
	if len(s.votes) < s.threshold {
		return res, nil
	}

	// quorum: resolver exactamente una vez (estamos bajo el lock del target)
	if err := v.resolve(ctx, s, now); err != nil {
		// la sesión queda abierta; un voto nuevo reintenta la resolución
		return res, err
	}
	v.remove(targetID)
	res.Resolved = true
	res.MuteMinutes = s.muteMinutes
	return res, nil
}

func (v *VoteSessions) resolve(ctx context.Context, s *voteSession, now time.Time) error {
	detail := fmt.Sprintf("quorum %d/%d, mute %d min", len(s.votes), s.threshold, s.muteMinutes)
	if _, err := v.audit.Append(ctx, entry(now, "", domain.ActionVoteResolved, s.targetID, detail)); err != nil {
		return err
	}
	if err := v.dir.SystemMute(ctx, s.targetID, s.muteMinutes, now); err != nil {
		return err
	}
	v.log.Info("vote_mute resuelto", "target", s.targetID, "mute_min", s.muteMinutes)
	return nil
}

// SweepExpired limpia sesiones vencidas; lo llama el engine desde un
// ticker. Una sesión expirada jamás produce mute.
func (v *VoteSessions) SweepExpired(now time.Time) int {
	v.mu.Lock()
	var expired []string
	for target, s := range v.sessions {
		if now.After(s.expiresAt) {
			expired = append(expired, target)
		}
	}
	v.mu.Unlock()

	// re-chequeo bajo el lock del target para no pisar un Cast en vuelo
	n := 0
	for _, target := range expired {
		unlock := v.locks.Lock(target)
		v.mu.Lock()
		if s, ok := v.sessions[target]; ok && now.After(s.expiresAt) {
			delete(v.sessions, target)
			n++
		}
		v.mu.Unlock()
		unlock()
	}
	if n > 0 {
		v.log.Info("sesiones de voto expiradas barridas", "n", n)
	}
	return n
}

// HasOpen: consulta para transporte y tests.
func (v *VoteSessions) HasOpen(targetID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.sessions[targetID]
	return ok
}

func (v *VoteSessions) remove(targetID string) {
	v.mu.Lock()
	delete(v.sessions, targetID)
	v.mu.Unlock()
}

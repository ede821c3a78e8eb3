package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/k-luch/chatguard-bot/internal/domain"
	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

// Directory es el directorio de usuarios: rol, ban y mute por user_id.
// Cada mutación toma el lock del target, de modo que el
// check-then-mutate de un usuario es atómico frente a otros comandos
// sobre el mismo usuario, y el audit se escribe ANTES que la fila:
// ninguna acción de moderación queda cometida sin su registro.
type Directory struct {
	log   *slog.Logger
	users UserStore
	audit *AuditLog
	locks *keyedMutex

	maxMuteMin int

	// default usado por las resoluciones de vote_mute; lo cambia
	// set_mute_duration y solo aplica a sesiones abiertas después.
	muDef          sync.Mutex
	defaultMuteMin int
}

func NewDirectory(log *slog.Logger, users UserStore, audit *AuditLog, defaultMuteMin, maxMuteMin int) *Directory {
	return &Directory{
		log:            log,
		users:          users,
		audit:          audit,
		locks:          newKeyedMutex(),
		maxMuteMin:     maxMuteMin,
		defaultMuteMin: defaultMuteMin,
	}
}

// ActionableStatus es la consulta pura de §isActionable: muted expira
// solo, sin unmute explícito ni sweeper.
type ActionableStatus struct {
	Active bool
	Muted  bool
	Banned bool
}

var reNick = regexp.MustCompile(`^[\p{L}\p{N} -]{1,50}$`)

// GetOrCreate: idempotente; el primer contacto crea la fila con rol
// 'user' y el propio id como nick hasta que pase por /start o /nick.
func (d *Directory) GetOrCreate(ctx context.Context, userID string, now time.Time) (domain.User, error) {
	unlock := d.locks.Lock(userID)
	defer unlock()

	u, err := d.get(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrUnknownTarget) {
		return domain.User{}, err
	}

	u = domain.User{ID: userID, Nick: userID, Role: domain.RoleUser, JoinedAt: now}
	if err := d.put(ctx, u); err != nil {
		return domain.User{}, err
	}
	d.log.Info("usuario registrado", "user_id", userID)
	return u, nil
}

func (d *Directory) SetNick(ctx context.Context, userID, nick string) (domain.User, error) {
	if !reNick.MatchString(nick) {
		return domain.User{}, fmt.Errorf("%w: nick inválido (1..50, letras/números/espacios/guiones)", domain.ErrInvalidArgument)
	}
	unlock := d.locks.Lock(userID)
	defer unlock()

	u, err := d.get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	u.Nick = nick
	if err := d.put(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// SetRole: solo admin; rol fuera del conjunto cerrado se rechaza en el
// borde vía ParseRole.
func (d *Directory) SetRole(ctx context.Context, actorID, targetID, roleStr string, now time.Time) (domain.User, error) {
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return domain.User{}, err
	}
	if err := d.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}

	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionSetRole, targetID, "rol: "+string(role))); err != nil {
		return domain.User{}, err
	}
	target.Role = role
	if err := d.put(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}

// Ban: solo admin. Idempotente: banear a un baneado no es error, queda
// como entrada repetida en el audit (el registro refleja al operador).
func (d *Directory) Ban(ctx context.Context, actorID, targetID, reason string, now time.Time) (domain.User, error) {
	if err := d.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}

	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionBan, targetID, reason)); err != nil {
		return domain.User{}, err
	}
	target.Banned = true
	target.BanReason = reason
	if err := d.put(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}

func (d *Directory) Unban(ctx context.Context, actorID, targetID string, now time.Time) (domain.User, error) {
	if err := d.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}

	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionUnban, targetID, "")); err != nil {
		return domain.User{}, err
	}
	target.Banned = false
	target.BanReason = ""
	if err := d.put(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}

// Mute: moderador o admin; a un moderador solo lo mutea un admin.
func (d *Directory) Mute(ctx context.Context, actorID, targetID string, minutes int, now time.Time) (domain.User, error) {
	if minutes < 1 || minutes > d.maxMuteMin {
		return domain.User{}, fmt.Errorf("%w: duración fuera de 1..%d minutos", domain.ErrInvalidArgument, d.maxMuteMin)
	}
	actor, err := d.get(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if !actor.Role.AtLeast(domain.RoleModerator) {
		return domain.User{}, domain.ErrUnauthorized
	}

	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if target.Role.AtLeast(domain.RoleModerator) && !actor.Role.AtLeast(domain.RoleAdmin) {
		return domain.User{}, domain.ErrTargetIneligible
	}
	detail := fmt.Sprintf("duración: %d min", minutes)
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionMute, targetID, detail)); err != nil {
		return domain.User{}, err
	}
	until := now.Add(time.Duration(minutes) * time.Minute)
	target.MuteUntil = &until
	if err := d.put(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}

func (d *Directory) Unmute(ctx context.Context, actorID, targetID string, now time.Time) (domain.User, error) {
	if err := d.requireRole(ctx, actorID, domain.RoleModerator); err != nil {
		return domain.User{}, err
	}

	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionUnmute, targetID, "")); err != nil {
		return domain.User{}, err
	}
	target.MuteUntil = nil
	if err := d.put(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}

// SystemMute aplica el mute de una resolución de vote_mute. El audit
// (VoteResolved) lo escribe la sesión, acá solo va la fila.
func (d *Directory) SystemMute(ctx context.Context, targetID string, minutes int, now time.Time) error {
	unlock := d.locks.Lock(targetID)
	defer unlock()

	target, err := d.get(ctx, targetID)
	if err != nil {
		return err
	}
	until := now.Add(time.Duration(minutes) * time.Minute)
	target.MuteUntil = &until
	return d.put(ctx, target)
}

// IsActionable: consulta pura.
func (d *Directory) IsActionable(ctx context.Context, userID string, now time.Time) (ActionableStatus, error) {
	u, err := d.get(ctx, userID)
	if err != nil {
		return ActionableStatus{}, err
	}
	st := ActionableStatus{Muted: u.Muted(now), Banned: u.Banned}
	st.Active = !st.Muted && !st.Banned
	return st, nil
}

// SetDefaultMuteDuration: solo admin; cambia el default que usan las
// resoluciones de vote_mute de sesiones futuras.
func (d *Directory) SetDefaultMuteDuration(ctx context.Context, actorID string, minutes int, now time.Time) error {
	if err := d.requireRole(ctx, actorID, domain.RoleAdmin); err != nil {
		return err
	}
	if minutes < 1 || minutes > d.maxMuteMin {
		return fmt.Errorf("%w: duración fuera de 1..%d minutos", domain.ErrInvalidArgument, d.maxMuteMin)
	}
	detail := fmt.Sprintf("nuevo default: %d min", minutes)
	if _, err := d.audit.Append(ctx, entry(now, actorID, domain.ActionSetMuteDuration, "", detail)); err != nil {
		return err
	}
	d.muDef.Lock()
	d.defaultMuteMin = minutes
	d.muDef.Unlock()
	return nil
}

func (d *Directory) DefaultMuteMinutes() int {
	d.muDef.Lock()
	defer d.muDef.Unlock()
	return d.defaultMuteMin
}

// Get expone la vista de dominio (la usan las sesiones de voto para
// elegibilidad).
func (d *Directory) Get(ctx context.Context, userID string) (domain.User, error) {
	return d.get(ctx, userID)
}

func (d *Directory) Nicks(ctx context.Context, ids []string) (map[string]string, error) {
	nicks, err := d.users.NicksByIDs(ctx, ids)
	if err != nil {
		return nil, &domain.StorageError{Op: "nicks", Err: err}
	}
	return nicks, nil
}

// MaxMuteMinutes: tope configurado para duraciones explícitas.
func (d *Directory) MaxMuteMinutes() int { return d.maxMuteMin }

// ---------- helpers ----------

func (d *Directory) requireRole(ctx context.Context, actorID string, min domain.Role) error {
	actor, err := d.get(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Role.AtLeast(min) {
		return domain.ErrUnauthorized
	}
	return nil
}

func (d *Directory) get(ctx context.Context, userID string) (domain.User, error) {
	row, err := d.users.Get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrUnknownTarget, userID)
	}
	if err != nil {
		return domain.User{}, &domain.StorageError{Op: "user get", Err: err}
	}
	role, err := domain.ParseRole(row.Role)
	if err != nil {
		// fila vieja con rol fuera del conjunto: degradamos a user
		d.log.Warn("rol desconocido en storage", "user_id", row.UserID, "role", row.Role)
		role = domain.RoleUser
	}
	return domain.User{
		ID:        row.UserID,
		Nick:      row.Nick,
		Role:      role,
		Banned:    row.Banned,
		BanReason: row.BanReason,
		MuteUntil: row.MuteUntil,
		JoinedAt:  row.JoinedAt,
	}, nil
}

func (d *Directory) put(ctx context.Context, u domain.User) error {
	row := storage.UserRow{
		UserID:    u.ID,
		Nick:      u.Nick,
		Role:      string(u.Role),
		Banned:    u.Banned,
		BanReason: u.BanReason,
		MuteUntil: u.MuteUntil,
	}
	if err := d.users.Upsert(ctx, row); err != nil {
		return &domain.StorageError{Op: "user upsert", Err: err}
	}
	return nil
}

package domain

import (
	"fmt"
	"time"
)

// Role es el conjunto cerrado de roles del chat.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole valida contra el conjunto cerrado; cualquier otro valor se
// rechaza en el borde.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: role %q", ErrInvalidArgument, s)
}

// AtLeast: user < moderator < admin.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// User es la fila del directorio. Nunca se borra físicamente (el audit
// log referencia user_ids para siempre).
type User struct {
	ID        string
	Nick      string
	Role      Role
	Banned    bool
	BanReason string
	MuteUntil *time.Time
	JoinedAt  time.Time
}

// Muted evalúa la expiración del mute de forma perezosa: no hay sweeper,
// el estado caduca al leerse.
func (u User) Muted(now time.Time) bool {
	return u.MuteUntil != nil && now.Before(*u.MuteUntil)
}

// Action etiqueta las acciones de moderación auditables.
type Action string

const (
	ActionMute            Action = "mute"
	ActionUnmute          Action = "unmute"
	ActionBan             Action = "ban"
	ActionUnban           Action = "unban"
	ActionSetRole         Action = "set_role"
	ActionSetMuteDuration Action = "set_mute_duration"
	ActionVoteCast        Action = "vote_cast"
	ActionVoteResolved    Action = "vote_resolved"
)

// AuditEntry es una entrada ya descifrada. En reposo, ActorID, Action y
// Detail viajan dentro del ciphertext; Seq, At y TargetID quedan en claro
// (orden y clave de consulta).
type AuditEntry struct {
	Seq      uint64
	At       time.Time
	ActorID  string
	Action   Action
	TargetID string
	Detail   string
}

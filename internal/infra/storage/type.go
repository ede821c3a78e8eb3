package storage

import "time"

// UserRow es la fila del directorio en postgres.
type UserRow struct {
	UserID    string
	Nick      string
	Role      string
	Banned    bool
	BanReason string
	MuteUntil *time.Time
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// AuditRow es una entrada del audit log en reposo: seq/at/target en
// claro, el resto dentro de payload (cifrado por el servicio).
type AuditRow struct {
	Seq      uint64
	At       time.Time
	TargetID string
	Payload  []byte
}

type PollRow struct {
	ID        int64
	CreatorID string
	Question  string
	Options   []string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/k-luch/chatguard-bot/internal/domain"
)

// Engine es la fachada que llama el transporte: autorizar → ejecutar →
// auditar. Cualquier fallo corta el comando con un error tipado y sin
// efectos parciales; una vez que la mutación arrancó, corre hasta el
// final (ningún rollback expuesto al transporte).
type Engine struct {
	log     *slog.Logger
	dir     *Directory
	votes   *VoteSessions
	polls   *Polls
	limiter *RateLimiter
	audit   *AuditLog

	rulesText string
	aboutText string
}

// Response es el payload de éxito que el transporte renderiza tal cual.
type Response struct {
	Text string
}

func NewEngine(log *slog.Logger, dir *Directory, votes *VoteSessions, polls *Polls, limiter *RateLimiter, audit *AuditLog, rulesText, aboutText string) *Engine {
	return &Engine{
		log:       log,
		dir:       dir,
		votes:     votes,
		polls:     polls,
		limiter:   limiter,
		audit:     audit,
		rulesText: rulesText,
		aboutText: aboutText,
	}
}

type cmdSpec struct {
	class   CommandClass
	minRole domain.Role
	// el mute corta la participación en el chat, no los comandos
	// privilegiados: un muteado con rol moderador+ pasa igual
	muteGated bool
}

// conjunto cerrado de comandos del borde con el transporte
var commands = map[string]cmdSpec{
	"start":             {class: ClassWrite, minRole: domain.RoleUser},
	"nick":              {class: ClassWrite, minRole: domain.RoleUser, muteGated: true},
	"poll":              {class: ClassWrite, minRole: domain.RoleUser, muteGated: true},
	"rules":             {class: ClassRead, minRole: domain.RoleUser},
	"about":             {class: ClassRead, minRole: domain.RoleUser},
	"ping":              {class: ClassRead, minRole: domain.RoleUser},
	"mute":              {class: ClassWrite, minRole: domain.RoleModerator},
	"unmute":            {class: ClassWrite, minRole: domain.RoleModerator},
	"vote_mute":         {class: ClassWrite, minRole: domain.RoleUser}, // elegibilidad del votante la decide la sesión
	"ban":               {class: ClassWrite, minRole: domain.RoleAdmin},
	"unban":             {class: ClassWrite, minRole: domain.RoleAdmin},
	"set_role":          {class: ClassWrite, minRole: domain.RoleAdmin},
	"view_logs":         {class: ClassRead, minRole: domain.RoleAdmin},
	"set_mute_duration": {class: ClassWrite, minRole: domain.RoleAdmin},
}

// Handle: rate limit → ban → rol → mute → lógica del comando → audit.
// Precedencia de autorización: el ban va primero (un baneado no emite
// nada, ni comandos de lectura), después rol, después mute.
func (e *Engine) Handle(ctx context.Context, actorID, command string, args []string, now time.Time) (Response, error) {
	spec, ok := commands[command]
	if !ok {
		return Response{}, fmt.Errorf("%w: comando %q", domain.ErrInvalidArgument, command)
	}

	if err := e.limiter.Allow(actorID, spec.class, now); err != nil {
		return Response{}, err
	}

	actor, err := e.dir.GetOrCreate(ctx, actorID, now)
	if err != nil {
		return Response{}, err
	}
	if actor.Banned {
		return Response{}, domain.ErrBanned
	}
	if !actor.Role.AtLeast(spec.minRole) {
		return Response{}, domain.ErrUnauthorized
	}
	if spec.muteGated && actor.Muted(now) && !actor.Role.AtLeast(domain.RoleModerator) {
		return Response{}, domain.ErrMuted
	}

	e.log.Info("comando", "cmd", command, "actor", actorID)
	return e.dispatch(ctx, actor, command, args, now)
}

// SweepExpired: lo llama el ticker de cmd/bot.
func (e *Engine) SweepExpired(now time.Time) int {
	return e.votes.SweepExpired(now)
}

func (e *Engine) dispatch(ctx context.Context, actor domain.User, command string, args []string, now time.Time) (Response, error) {
	switch command {

	case "start":
		if len(args) > 0 {
			// el rename opcional pasa por el mismo gate que /nick
			if actor.Muted(now) && !actor.Role.AtLeast(domain.RoleModerator) {
				return Response{}, domain.ErrMuted
			}
			u, err := e.dir.SetNick(ctx, actor.ID, strings.Join(args, " "))
			if err != nil {
				return Response{}, err
			}
			actor = u
		}
		return Response{Text: fmt.Sprintf("👋 ¡Bienvenido, %s! Usa `rules` para ver las reglas.", actor.Nick)}, nil

	case "nick":
		if len(args) == 0 {
			return Response{}, fmt.Errorf("%w: usa `nick <nuevo_nick>`", domain.ErrInvalidArgument)
		}
		u, err := e.dir.SetNick(ctx, actor.ID, strings.Join(args, " "))
		if err != nil {
			return Response{}, err
		}
		return Response{Text: "✅ Nick cambiado a **" + u.Nick + "**"}, nil

	case "poll":
		msg, err := e.polls.Handle(ctx, actor, args, now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: msg}, nil

	case "rules":
		return Response{Text: e.rulesText}, nil

	case "about":
		return Response{Text: e.aboutText}, nil

	case "ping":
		return Response{Text: "🏓 Pong!"}, nil

	case "mute":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		minutes := e.dir.DefaultMuteMinutes()
		if len(args) > 1 {
			if minutes, err = wantInt(args[1], "duración"); err != nil {
				return Response{}, err
			}
		}
		u, err := e.dir.Mute(ctx, actor.ID, target, minutes, now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: fmt.Sprintf("🔶 %s muteado por %d minutos", u.Nick, minutes)}, nil

	case "unmute":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		u, err := e.dir.Unmute(ctx, actor.ID, target, now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: "🔈 " + u.Nick + " ya puede hablar"}, nil

	case "vote_mute":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		res, err := e.votes.Cast(ctx, actor.ID, target, now)
		if err != nil {
			return Response{}, err
		}
		if res.Resolved {
			return Response{Text: fmt.Sprintf("🔶 Quorum alcanzado: mute de %d minutos aplicado por votación", res.MuteMinutes)}, nil
		}
		return Response{Text: fmt.Sprintf("🗳 Voto registrado: %d/%d", res.Votes, res.Threshold)}, nil

	case "ban":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		reason := strings.Join(args[1:], " ")
		u, err := e.dir.Ban(ctx, actor.ID, target, reason, now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: "🔴 " + u.Nick + " baneado"}, nil

	case "unban":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		u, err := e.dir.Unban(ctx, actor.ID, target, now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: "🟢 " + u.Nick + " desbaneado"}, nil

	case "set_role":
		if len(args) < 2 {
			return Response{}, fmt.Errorf("%w: usa `set_role <usuario> <admin|moderator|user>`", domain.ErrInvalidArgument)
		}
		u, err := e.dir.SetRole(ctx, actor.ID, args[0], args[1], now)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: fmt.Sprintf("✅ %s ahora es **%s**", u.Nick, u.Role)}, nil

	case "view_logs":
		target, err := wantTarget(args)
		if err != nil {
			return Response{}, err
		}
		limit := 10
		if len(args) > 1 {
			if limit, err = wantInt(args[1], "límite"); err != nil {
				return Response{}, err
			}
		}
		if limit < 1 || limit > 50 {
			return Response{}, fmt.Errorf("%w: límite fuera de 1..50", domain.ErrInvalidArgument)
		}
		return e.viewLogs(ctx, target, limit)

	case "set_mute_duration":
		if len(args) == 0 {
			return Response{}, fmt.Errorf("%w: usa `set_mute_duration <minutos>`", domain.ErrInvalidArgument)
		}
		minutes, err := wantInt(args[0], "duración")
		if err != nil {
			return Response{}, err
		}
		if err := e.dir.SetDefaultMuteDuration(ctx, actor.ID, minutes, now); err != nil {
			return Response{}, err
		}
		return Response{Text: fmt.Sprintf("✅ Duración de mute por votación: %d minutos", minutes)}, nil
	}

	// la tabla y el switch van juntos; llegar acá es un bug
	return Response{}, fmt.Errorf("%w: comando %q sin handler", domain.ErrInvalidArgument, command)
}

func (e *Engine) viewLogs(ctx context.Context, target string, limit int) (Response, error) {
	entries, err := e.audit.Query(ctx, target, limit)
	if err != nil {
		return Response{}, err
	}
	if len(entries) == 0 {
		return Response{Text: "ℹ️ Sin registros para ese usuario."}, nil
	}

	// una sola consulta para todos los nicks
	ids := make([]string, 0, len(entries)+1)
	ids = append(ids, target)
	for _, en := range entries {
		if en.ActorID != "" {
			ids = append(ids, en.ActorID)
		}
	}
	nicks, err := e.dir.Nicks(ctx, ids)
	if err != nil {
		return Response{}, err
	}
	nick := func(id string) string {
		if id == "" {
			return "sistema"
		}
		if n, ok := nicks[id]; ok {
			return n
		}
		return id
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Últimas %d entradas de %s:", len(entries), nick(target))
	for _, en := range entries {
		fmt.Fprintf(&b, "\n#%d %s — %s %s", en.Seq, en.At.Format("2006-01-02 15:04"), nick(en.ActorID), en.Action)
		if en.Detail != "" {
			b.WriteString(" (" + en.Detail + ")")
		}
	}
	return Response{Text: b.String()}, nil
}

// ---------- helpers ----------

func wantTarget(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("%w: falta el usuario objetivo", domain.ErrInvalidArgument)
	}
	return args[0], nil
}

func wantInt(raw, what string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q no es un número", domain.ErrInvalidArgument, what, raw)
	}
	return n, nil
}

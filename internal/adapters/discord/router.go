package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/k-luch/chatguard-bot/internal/app/service"
	"github.com/k-luch/chatguard-bot/internal/domain"
)

// Router traduce interacciones de discordgo al borde del engine:
// Handle(actorID, comando, args, now). Acá no hay lógica de moderación,
// solo parseo de opciones y render de la respuesta.
type Router struct {
	s       *discordgo.Session
	log     *slog.Logger
	guildID string
	engine  *service.Engine
}

func NewRouter(s *discordgo.Session, log *slog.Logger, guildID string, engine *service.Engine) *Router {
	return &Router{s: s, log: log, guildID: guildID, engine: engine}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return fmt.Errorf("registrando /%s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if ic.GuildID != r.guildID || ic.Member == nil || ic.Member.User == nil {
			return
		}
		r.handleSlashCommand(s, ic)
	})
}

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	actorID := ic.Member.User.ID
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic en slash command", "cmd", data.Name, "panic", rec)
			ReplyEphemeral(s, ic, "❌ Ocurrió un error inesperado. Contacta con un administrador.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	args := commandArgs(ic)
	resp, err := r.engine.Handle(ctx, actorID, data.Name, args, time.Now())
	r.log.Info("slash", "cmd", data.Name, "actor", actorID, "ok", err == nil, "took", time.Since(start))
	if err != nil {
		ReplyEphemeral(s, ic, r.errText(err))
		return
	}
	ReplyEphemeral(s, ic, resp.Text)
}

// errText traduce la taxonomía del engine a texto para el usuario. El
// StorageError no muestra la causa: esa va al log del operador.
func (r *Router) errText(err error) string {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Sprintf("⏳ Demasiados comandos. Probá de nuevo en %s.", rl.RetryAfter.Round(time.Second))
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		r.log.Error("fallo de storage", "err", se.Err, "op", se.Op)
		return "⚠️ Algo falló de nuestro lado. Intentá de nuevo."
	}

	switch {
	case errors.Is(err, domain.ErrBanned):
		return "🚫 Estás baneado: no podés usar comandos."
	case errors.Is(err, domain.ErrMuted):
		return "🔇 Estás muteado: ese comando no está disponible."
	case errors.Is(err, domain.ErrUnauthorized):
		return "🔒 No tenés permisos para esta acción."
	case errors.Is(err, domain.ErrUnknownTarget):
		return "❌ Usuario no encontrado."
	case errors.Is(err, domain.ErrSelfVote):
		return "❌ No podés votar tu propio mute."
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "❌ Ya votaste en esta sesión."
	case errors.Is(err, domain.ErrNoOpenSession):
		return "ℹ️ No hay votación abierta contra ese usuario."
	case errors.Is(err, domain.ErrSessionExpired):
		return "⌛ La votación expiró sin quorum."
	case errors.Is(err, domain.ErrVoterIneligible):
		return "❌ No estás habilitado para votar (ban o mute activo)."
	case errors.Is(err, domain.ErrTargetIneligible):
		return "❌ Ese usuario no puede ser objetivo de la acción."
	case errors.Is(err, domain.ErrAlreadyOpen):
		return "ℹ️ Ya hay una votación abierta contra ese usuario."
	case errors.Is(err, domain.ErrDecryption):
		r.log.Error("audit log no descifra", "err", err)
		return "⚠️ No pude leer el historial: avisá al operador."
	case errors.Is(err, domain.ErrInvalidArgument):
		return "❌ " + err.Error()
	}
	r.log.Error("error sin mapear", "err", err)
	return "⚠️ No se pudo ejecutar el comando."
}

// commandArgs aplana las opciones del slash command al []string que
// espera el engine, en el orden posicional de cada comando.
func commandArgs(ic *discordgo.InteractionCreate) []string {
	data := ic.ApplicationCommandData()
	var args []string

	switch data.Name {
	case "start", "nick":
		if v, ok := optStr(ic, "nick"); ok {
			args = append(args, v)
		}
	case "poll":
		sub, ok := subcmdName(ic)
		if !ok {
			return nil
		}
		args = append(args, sub)
		switch sub {
		case "new":
			if v, ok := optStr(ic, "texto"); ok {
				args = append(args, v)
			}
		case "vote":
			if v, ok := optInt(ic, "id"); ok {
				args = append(args, fmt.Sprint(v))
			}
			if v, ok := optInt(ic, "opcion"); ok {
				args = append(args, fmt.Sprint(v))
			}
		case "close", "show":
			if v, ok := optInt(ic, "id"); ok {
				args = append(args, fmt.Sprint(v))
			}
		}
	case "mute":
		args = appendUser(args, ic)
		if v, ok := optInt(ic, "minutos"); ok {
			args = append(args, fmt.Sprint(v))
		}
	case "unmute", "vote_mute", "unban":
		args = appendUser(args, ic)
	case "ban":
		args = appendUser(args, ic)
		if v, ok := optStr(ic, "motivo"); ok {
			args = append(args, v)
		}
	case "set_role":
		args = appendUser(args, ic)
		if v, ok := optStr(ic, "rol"); ok {
			args = append(args, v)
		}
	case "view_logs":
		args = appendUser(args, ic)
		if v, ok := optInt(ic, "limite"); ok {
			args = append(args, fmt.Sprint(v))
		}
	case "set_mute_duration":
		if v, ok := optInt(ic, "minutos"); ok {
			args = append(args, fmt.Sprint(v))
		}
	}
	return args
}

func appendUser(args []string, ic *discordgo.InteractionCreate) []string {
	if id, ok := optUserID(ic, "usuario"); ok {
		args = append(args, id)
	}
	return args
}

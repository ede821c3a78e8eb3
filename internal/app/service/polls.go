package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/k-luch/chatguard-bot/internal/domain"
	"github.com/k-luch/chatguard-bot/internal/infra/storage"
)

// Polls: encuestas del chat. No son acciones de moderación, así que no
// pasan por el audit log; sí por el rate limiter (clase write).
type Polls struct {
	log   *slog.Logger
	store PollStore
}

func NewPolls(log *slog.Logger, store PollStore) *Polls {
	return &Polls{log: log, store: store}
}

// Handle despacha los subcomandos de /poll:
//
//	poll new <pregunta> | <opción> | <opción> [...]
//	poll vote <id> <opción#>
//	poll close <id>
//	poll show <id>
func (p *Polls) Handle(ctx context.Context, actor domain.User, args []string, now time.Time) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: usa `poll new|vote|close|show`", domain.ErrInvalidArgument)
	}
	switch args[0] {
	case "new":
		return p.create(ctx, actor, strings.Join(args[1:], " "))
	case "vote":
		return p.vote(ctx, actor, args[1:])
	case "close":
		return p.close(ctx, actor, args[1:], now)
	case "show":
		return p.show(ctx, args[1:])
	}
	return "", fmt.Errorf("%w: subcomando %q", domain.ErrInvalidArgument, args[0])
}

func (p *Polls) create(ctx context.Context, actor domain.User, raw string) (string, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: formato `pregunta | opción | opción`", domain.ErrInvalidArgument)
	}
	question := strings.TrimSpace(parts[0])
	options := make([]string, 0, len(parts)-1)
	for _, o := range parts[1:] {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if question == "" || len(options) < 2 {
		return "", fmt.Errorf("%w: hace falta pregunta y al menos 2 opciones", domain.ErrInvalidArgument)
	}

	id, err := p.store.Create(ctx, actor.ID, question, options)
	if err != nil {
		return "", &domain.StorageError{Op: "poll create", Err: err}
	}
	p.log.Info("poll creada", "poll_id", id, "creator", actor.ID)
	return fmt.Sprintf("📊 Poll #%d creada: %s\nVota con `poll vote %d <opción#>`", id, question, id), nil
}

func (p *Polls) vote(ctx context.Context, actor domain.User, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: usa `poll vote <id> <opción#>`", domain.ErrInvalidArgument)
	}
	id, option, err := parsePollVote(args[0], args[1])
	if err != nil {
		return "", err
	}
	poll, err := p.get(ctx, id)
	if err != nil {
		return "", err
	}
	if poll.ClosedAt != nil {
		return "", fmt.Errorf("%w: la poll #%d está cerrada", domain.ErrInvalidArgument, id)
	}
	if option < 1 || option > len(poll.Options) {
		return "", fmt.Errorf("%w: opción fuera de 1..%d", domain.ErrInvalidArgument, len(poll.Options))
	}
	if err := p.store.Vote(ctx, id, actor.ID, option-1); err != nil {
		return "", &domain.StorageError{Op: "poll vote", Err: err}
	}
	return fmt.Sprintf("🗳 Voto registrado en la poll #%d: %s", id, poll.Options[option-1]), nil
}

func (p *Polls) close(ctx context.Context, actor domain.User, args []string, now time.Time) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: usa `poll close <id>`", domain.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: id de poll inválido", domain.ErrInvalidArgument)
	}
	poll, err := p.get(ctx, id)
	if err != nil {
		return "", err
	}
	// la cierra quien la creó, o moderador para arriba
	if poll.CreatorID != actor.ID && !actor.Role.AtLeast(domain.RoleModerator) {
		return "", domain.ErrUnauthorized
	}
	if err := p.store.Close(ctx, id, now); err != nil {
		return "", &domain.StorageError{Op: "poll close", Err: err}
	}
	return p.show(ctx, args[:1])
}

func (p *Polls) show(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: usa `poll show <id>`", domain.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: id de poll inválido", domain.ErrInvalidArgument)
	}
	poll, err := p.get(ctx, id)
	if err != nil {
		return "", err
	}
	tally, err := p.store.Tally(ctx, id)
	if err != nil {
		return "", &domain.StorageError{Op: "poll tally", Err: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Poll #%d: %s", poll.ID, poll.Question)
	if poll.ClosedAt != nil {
		b.WriteString(" (cerrada)")
	}
	for i, opt := range poll.Options {
		fmt.Fprintf(&b, "\n%d. %s — %d", i+1, opt, tally[i])
	}
	return b.String(), nil
}

func (p *Polls) get(ctx context.Context, id int64) (storage.PollRow, error) {
	poll, err := p.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.PollRow{}, fmt.Errorf("%w: poll #%d", domain.ErrUnknownTarget, id)
	}
	if err != nil {
		return storage.PollRow{}, &domain.StorageError{Op: "poll get", Err: err}
	}
	return poll, nil
}

func parsePollVote(rawID, rawOpt string) (int64, int, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: id de poll inválido", domain.ErrInvalidArgument)
	}
	opt, err := strconv.Atoi(rawOpt)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: opción inválida", domain.ErrInvalidArgument)
	}
	return id, opt, nil
}

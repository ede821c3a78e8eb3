package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-luch/chatguard-bot/internal/domain"
)

func pollActor(id string, role domain.Role) domain.User {
	return domain.User{ID: id, Nick: id, Role: role}
}

func TestPollLifecycle(t *testing.T) {
	s := newStack(t, 5, time.Hour)
	ctx := context.Background()
	now := time.Now()
	creator := pollActor("creador", domain.RoleUser)

	msg, err := s.pollsSvc.Handle(ctx, creator, []string{"new", "¿pizza", "o", "asado?", "|", "pizza", "|", "asado"}, now)
	require.NoError(t, err)
	assert.Contains(t, msg, "Poll #1")

	msg, err = s.pollsSvc.Handle(ctx, pollActor("V1", domain.RoleUser), []string{"vote", "1", "2"}, now)
	require.NoError(t, err)
	assert.Contains(t, msg, "asado")

	_, err = s.pollsSvc.Handle(ctx, pollActor("V1", domain.RoleUser), []string{"vote", "1", "9"}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	msg, err = s.pollsSvc.Handle(ctx, creator, []string{"show", "1"}, now)
	require.NoError(t, err)
	assert.Contains(t, msg, "asado — 1")

	// cerrar: ni un tercero ni votar después del cierre
	_, err = s.pollsSvc.Handle(ctx, pollActor("V1", domain.RoleUser), []string{"close", "1"}, now)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	msg, err = s.pollsSvc.Handle(ctx, creator, []string{"close", "1"}, now)
	require.NoError(t, err)
	assert.Contains(t, msg, "cerrada")

	_, err = s.pollsSvc.Handle(ctx, pollActor("V2", domain.RoleUser), []string{"vote", "1", "1"}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPollModeratorCanClose(t *testing.T) {
	s := newStack(t, 5, time.Hour)
	ctx := context.Background()
	now := time.Now()

	_, err := s.pollsSvc.Handle(ctx, pollActor("creador", domain.RoleUser), []string{"new", "¿sí?", "|", "sí", "|", "no"}, now)
	require.NoError(t, err)

	msg, err := s.pollsSvc.Handle(ctx, pollActor("mod", domain.RoleModerator), []string{"close", "1"}, now)
	require.NoError(t, err)
	assert.Contains(t, msg, "cerrada")
}

func TestPollValidation(t *testing.T) {
	s := newStack(t, 5, time.Hour)
	ctx := context.Background()
	now := time.Now()
	u := pollActor("U", domain.RoleUser)

	cases := [][]string{
		nil,
		{"bailar"},
		{"new", "pregunta", "sin", "opciones"},
		{"new", "pregunta", "|", "una-sola"},
		{"vote", "no-numero", "1"},
		{"show"},
	}
	for _, args := range cases {
		_, err := s.pollsSvc.Handle(ctx, u, args, now)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "args=%v", args)
	}

	_, err := s.pollsSvc.Handle(ctx, u, []string{"show", "42"}, now)
	assert.ErrorIs(t, err, domain.ErrUnknownTarget)
}

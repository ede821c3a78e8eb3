package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, ok := range []string{"user", "moderator", "admin"} {
		r, err := ParseRole(ok)
		assert.NoError(t, err)
		assert.Equal(t, Role(ok), r)
	}
	for _, bad := range []string{"", "root", "Admin", "superuser"} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, "role=%q", bad)
	}
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleModerator))
	assert.True(t, RoleModerator.AtLeast(RoleUser))
	assert.True(t, RoleUser.AtLeast(RoleUser))
	assert.False(t, RoleUser.AtLeast(RoleModerator))
	assert.False(t, RoleModerator.AtLeast(RoleAdmin))
}

func TestUserMutedLazyExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Minute)
	u := User{ID: "x", MuteUntil: &until}

	assert.True(t, u.Muted(now))
	assert.True(t, u.Muted(until.Add(-time.Second)))
	// en el límite exacto ya no está muteado
	assert.False(t, u.Muted(until))
	assert.False(t, u.Muted(until.Add(time.Hour)))

	assert.False(t, User{ID: "y"}.Muted(now))
}

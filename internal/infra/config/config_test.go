package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/chatguard")
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "g1")
	t.Setenv("ENCRYPTION_KEY", strings.Repeat("ab", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MuteVoteThreshold)
	assert.Equal(t, 60, cfg.MuteVoteWindowMin)
	assert.Equal(t, 30, cfg.MuteDurationMin)
	assert.Equal(t, 10080, cfg.MuteMaxDurationMin)
	assert.Equal(t, 3, cfg.RateWriteBurst)
	assert.Equal(t, 0.1, cfg.RateWritePerSecond)
	assert.Equal(t, 30, cfg.AuditRetentionDays)

	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestLoadOverridesAndAdminList(t *testing.T) {
	setRequired(t)
	t.Setenv("MUTE_VOTE_THRESHOLD", "3")
	t.Setenv("ADMIN_USER_IDS", "111,222")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MuteVoteThreshold)
	assert.Equal(t, []string{"111", "222"}, cfg.AdminUserIDs)
}

func TestLoadRejectsBadKey(t *testing.T) {
	setRequired(t)

	t.Setenv("ENCRYPTION_KEY", "zzzz")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ENCRYPTION_KEY", "abcd")
	_, err = Load()
	assert.Error(t, err)
}

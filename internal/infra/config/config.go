package config

import (
	"encoding/hex"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required"`
	DiscordGuild string `env:"DISCORD_GUILD_ID,required"`

	// Clave simétrica del audit log (hex, 32 bytes). Sin clave no
	// arrancamos: un log sin cifrar no es un log.
	EncryptionKey string `env:"ENCRYPTION_KEY,required"`

	// Bootstrap: alguien tiene que ser admin antes de que set_role sirva.
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	MuteVoteThreshold  int `env:"MUTE_VOTE_THRESHOLD" envDefault:"5"`
	MuteVoteWindowMin  int `env:"MUTE_VOTE_WINDOW" envDefault:"60"`
	MuteDurationMin    int `env:"MUTE_DURATION" envDefault:"30"`
	MuteMaxDurationMin int `env:"MUTE_MAX_DURATION" envDefault:"10080"`

	// Token bucket por (user, clase): write es estricta, read laxa.
	RateWriteBurst     int     `env:"RATE_WRITE_BURST" envDefault:"3"`
	RateWritePerSecond float64 `env:"RATE_WRITE_PER_SECOND" envDefault:"0.1"`
	RateReadBurst      int     `env:"RATE_READ_BURST" envDefault:"10"`
	RateReadPerSecond  float64 `env:"RATE_READ_PER_SECOND" envDefault:"1"`

	AuditRetentionDays int `env:"AUDIT_RETENTION_DAYS" envDefault:"30"`

	RulesText string `env:"RULES_TEXT" envDefault:"📜 Reglas del chat:\n1. Sé amable.\n2. Nada de spam.\n3. Respeta la ley."`
	AboutText string `env:"ABOUT_TEXT" envDefault:"🤖 Bot de moderación del chat. v1.0"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Key(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Key decodifica ENCRYPTION_KEY y valida el tamaño.
func (c Config) Key() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("config: ENCRYPTION_KEY no es hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: ENCRYPTION_KEY debe ser de 32 bytes, tiene %d", len(key))
	}
	return key, nil
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/k-luch/chatguard-bot/internal/adapters/discord"
	"github.com/k-luch/chatguard-bot/internal/app/service"
	"github.com/k-luch/chatguard-bot/internal/domain"
	"github.com/k-luch/chatguard-bot/internal/infra/config"
	"github.com/k-luch/chatguard-bot/internal/infra/crypto"
	"github.com/k-luch/chatguard-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	usersRepo := storage.NewUserRepo(db)
	auditRepo := storage.NewAuditRepo(db)
	pollRepo := storage.NewPollRepo(db)

	// Sealer (clave inyectada; sin clave no hay arranque)
	key, err := cfg.Key()
	if err != nil {
		log.Fatal(err)
	}
	sealer, err := crypto.New(key)
	if err != nil {
		log.Fatal(err)
	}

	// Core
	audit, err := service.NewAuditLog(context.Background(), logger, auditRepo, sealer)
	if err != nil {
		log.Fatal("audit:", err)
	}
	dir := service.NewDirectory(logger, usersRepo, audit, cfg.MuteDurationMin, cfg.MuteMaxDurationMin)
	votes := service.NewVoteSessions(logger, dir, audit, cfg.MuteVoteThreshold, time.Duration(cfg.MuteVoteWindowMin)*time.Minute)
	polls := service.NewPolls(logger, pollRepo)
	limiter := service.NewRateLimiter(map[service.CommandClass]service.ClassLimit{
		service.ClassWrite: {PerSecond: cfg.RateWritePerSecond, Burst: cfg.RateWriteBurst},
		service.ClassRead:  {PerSecond: cfg.RateReadPerSecond, Burst: cfg.RateReadBurst},
	})
	engine := service.NewEngine(logger, dir, votes, polls, limiter, audit, cfg.RulesText, cfg.AboutText)

	// Bootstrap de admins: sin esto nadie puede usar set_role
	if err := bootstrapAdmins(context.Background(), dir, usersRepo, cfg.AdminUserIDs); err != nil {
		log.Fatal("bootstrap admins:", err)
	}

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Router
	r := discordrouter.NewRouter(s, logger, cfg.DiscordGuild, engine)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Barrido de sesiones de voto vencidas (la expiración igual se
	// evalúa perezosa en cada voto)
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for range t.C {
			engine.SweepExpired(time.Now())
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}

// bootstrapAdmins crea (si hace falta) y promueve a admin los IDs de
// ADMIN_USER_IDS, directo contra el repo: no es una acción de un actor
// del chat, así que no pasa por el audit de set_role.
func bootstrapAdmins(ctx context.Context, dir *service.Directory, users *storage.UserRepo, ids []string) error {
	now := time.Now()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		u, err := dir.GetOrCreate(ctx, id, now)
		if err != nil {
			return err
		}
		if u.Role == domain.RoleAdmin {
			continue
		}
		if err := users.Upsert(ctx, storage.UserRow{
			UserID:    u.ID,
			Nick:      u.Nick,
			Role:      string(domain.RoleAdmin),
			Banned:    u.Banned,
			BanReason: u.BanReason,
			MuteUntil: u.MuteUntil,
		}); err != nil {
			return err
		}
		log.Printf("✅ admin bootstrap: %s", id)
	}
	return nil
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"dict-relay-bot/internal/bot"
	rediscache "dict-relay-bot/internal/cache/redis"
	"dict-relay-bot/internal/common/logger"
	"dict-relay-bot/internal/config"
	udomain "dict-relay-bot/internal/domain/user"
	opshttp "dict-relay-bot/internal/http"
	"dict-relay-bot/internal/platform/db"
	rplatform "dict-relay-bot/internal/platform/redis"
	tgplatform "dict-relay-bot/internal/platform/telegram"
	"dict-relay-bot/internal/repository/postgres"
	"dict-relay-bot/internal/service/access"
	"dict-relay-bot/internal/service/admin"
	"dict-relay-bot/internal/service/directory"
	"dict-relay-bot/internal/service/relay"
)

const userCacheTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("dict-relay-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("dict-relay-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	var users udomain.Repository = postgres.NewUserRepository(database)
	dict := postgres.NewDictionaryRepository(database)
	suggestions := postgres.NewSuggestionRepository(database)

	var redisClient *rplatform.Client
	if cfg.Redis.Enabled {
		redisClient, err = rplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The cache is an optimization; the bot serves without it.
			logger.Warn().Err(err).Msg("Redis unavailable, user cache disabled")
		} else {
			defer redisClient.Close()
			users = rediscache.NewCachedUserRepository(users, redisClient, userCacheTTL)
			logger.Info().Msg("User cache enabled")
		}
	}

	client := tgplatform.NewClient(cfg.Telegram.BotToken, cfg.Telegram.PollTimeout)

	accessSvc := access.NewService(users, cfg.Telegram.AdminID)
	directorySvc := directory.NewService(users, client, cfg.Telegram.GroupID, cfg.Telegram.AdminID)
	relaySvc := relay.NewService(users, dict, suggestions, directorySvc, client, cfg.Telegram.GroupID, cfg.Telegram.AdminID)
	adminSvc := admin.NewService(users, dict, accessSvc, client)

	ops := opshttp.NewOpsServer(cfg.Ops.Addr, database, redisClient, users, dict, cfg.Debug)
	go ops.Start()

	router := bot.NewRouter(client, relaySvc, adminSvc, accessSvc, cfg.Telegram.GroupID, cfg.Telegram.PollTimeout)
	router.Run(ctx)

	logger.Info().Msg("Shutdown complete")
}

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/balbonits/drm-broker/adapters/cache"
	"github.com/balbonits/drm-broker/adapters/counter"
	"github.com/balbonits/drm-broker/adapters/events"
	"github.com/balbonits/drm-broker/adapters/store"
	"github.com/balbonits/drm-broker/adapters/tokenizer"
	"github.com/balbonits/drm-broker/config"
	"github.com/balbonits/drm-broker/service"
	transport "github.com/balbonits/drm-broker/transport/http"
)

func main() {
	// Local runs read a .env file; deployments set real environment.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	signKey, err := cfg.LoadSigningKey()
	if err != nil {
		log.Error("failed to load signing key", slog.String("error", err.Error()))
		os.Exit(1)
	}

	prevPublic, err := cfg.LoadPreviousPublicKey()
	if err != nil {
		log.Error("failed to load previous public key", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jwtTokenizer, err := tokenizer.NewJWTTokenizer(signKey, prevPublic)
	if err != nil {
		log.Error("failed to create tokenizer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(cfg); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("failed to parse Redis URL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewSlogLogger(log),
	)
	if err != nil {
		log.Error("failed to create event publisher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pgStore := store.NewPostgresStore(db)
	redisCache := cache.NewRedisCache(redisClient)
	streamCounter := counter.NewRedisCounter(redisClient, cfg.StreamCounterTTL)
	eventPub := events.NewWatermillPublisher(publisher)

	issuer := service.NewIssuer(
		jwtTokenizer, pgStore, redisCache, log,
		cfg.FingerprintSecret, cfg.LicenseEndpoint,
		cfg.DefaultTokenTTL, cfg.MaxTokenTTL,
	)
	validator := service.NewValidator(
		jwtTokenizer, pgStore, redisCache, streamCounter,
		pgStore, eventPub, log, cfg.FingerprintSecret,
	)
	keys := service.NewKeyService(pgStore, redisCache, log, cfg.KeyValidity, cfg.KeyCacheTTL)
	broker := service.NewBroker(validator, keys, pgStore, eventPub, log)

	router := transport.SetupRouter(issuer, validator, broker, log)

	log.Info("starting server", slog.String("addr", cfg.ListenAddr))
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", cfg.MigrationsDir), cfg.PostgresDSN)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

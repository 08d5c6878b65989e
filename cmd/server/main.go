package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	ginapi "github.com/exceedlab/blogd/api/gin"
	"github.com/exceedlab/blogd/config"
	"github.com/exceedlab/blogd/internal/auth"
	"github.com/exceedlab/blogd/internal/blacklist"
	"github.com/exceedlab/blogd/internal/metrics"
	"github.com/exceedlab/blogd/internal/server"
	"github.com/exceedlab/blogd/internal/token"
	"github.com/exceedlab/blogd/mongodb"
	"github.com/exceedlab/blogd/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", logLevel.String()).
		Msg("Starting blogd server")

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserRepository")
	}

	// The blacklist store is process-scoped: constructed once here, swept in
	// the background, closed at shutdown.
	var bl blacklist.Store
	var blacklistLen func() int
	if cfg.BlacklistRedisAddr != "" {
		bl = blacklist.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: cfg.BlacklistRedisAddr}),
			cfg.BlacklistRedisPrefix,
		)
	} else {
		mem := blacklist.NewMemoryStore(cfg.BlacklistSweepInterval())
		blacklistLen = mem.Len
		bl = mem
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(registry, blacklistLen)

	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	tokens := token.NewService([]byte(cfg.JWTSecretKey), cfg.JWTIssuer,
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	sessionService := services.NewSessionService(userRepo, tokens, bl, passwordHasher)
	userService := services.NewUserService(userRepo, passwordHasher)

	userAPI := ginapi.NewUserAPI(sessionService, userService, cfg)
	httpServer := server.NewHTTPServer(cfg, userAPI, tokens, bl, registry)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := bl.Close(); err != nil {
		log.Error().Err(err).Msg("Blacklist store shutdown failed")
	}
	mongodb.CloseMongoDB(shutdownCtx)

	log.Info().Msg("Server stopped")
}

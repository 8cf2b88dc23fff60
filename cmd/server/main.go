package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/verlyn13/dicee-server/internal/auth"
	"github.com/verlyn13/dicee-server/internal/config"
	"github.com/verlyn13/dicee-server/internal/handlers"
	"github.com/verlyn13/dicee-server/internal/lobby"
	"github.com/verlyn13/dicee-server/internal/room"
	"github.com/verlyn13/dicee-server/internal/store"
)

func main() {
	log := logrus.New()

	// Load server configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	configureLogging(log, cfg)
	log.WithFields(logrus.Fields{
		"maxPlayers":  cfg.Game.MaxPlayersPerRoom,
		"turnTimeout": cfg.Game.TurnTimeoutSeconds,
	}).Info("configuration loaded")

	verifier, err := buildVerifier(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize token verification")
	}

	storage, err := buildStorage(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}

	directory, err := buildDirectory(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize lobby directory")
	}

	rooms := handlers.NewRoomManager(cfg, room.Deps{
		Store: storage,
		Lobby: directory,
		Log:   log,
	})
	h := handlers.New(rooms, verifier, cfg, log)
	r := handlers.SetupRouter(h, cfg, nil)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	rooms.Shutdown()

	log.Info("server gracefully stopped")
}

func configureLogging(log *logrus.Logger, cfg *config.ServerConfig) {
	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Server.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func buildVerifier(cfg *config.ServerConfig) (auth.Verifier, error) {
	if cfg.Auth.JWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.KeyCacheSize)
	}
	return auth.NewHMACVerifier([]byte(cfg.Auth.HMACSecret), cfg.Auth.Issuer, cfg.Auth.Audience), nil
}

func buildStorage(cfg *config.ServerConfig, log *logrus.Logger) (store.Storage, error) {
	if cfg.Store.PostgresDSN != "" {
		log.Info("using postgres room storage")
		return store.NewGormStore(cfg.Store.PostgresDSN)
	}
	log.Info("using in-memory room storage")
	return store.NewMemoryStore(), nil
}

func buildDirectory(cfg *config.ServerConfig, log *logrus.Logger) (lobby.Directory, error) {
	if cfg.Lobby.RedisAddr != "" {
		log.WithField("addr", cfg.Lobby.RedisAddr).Info("publishing lobby updates via redis")
		return lobby.NewRedisDirectory(cfg.Lobby.RedisAddr, cfg.Lobby.RedisChannel)
	}
	log.Info("no lobby directory configured, projections discarded")
	return lobby.Noop{}, nil
}

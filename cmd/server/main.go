package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lanshare/lanshare/internal/logger"
	"github.com/lanshare/lanshare/internal/server"
	"github.com/lanshare/lanshare/internal/store"
	"github.com/lanshare/lanshare/internal/token"
)

func main() {
	cfg := server.NewConfigFromEnv()

	if err := logger.Init(cfg.LogLevel, cfg.LogPath); err != nil {
		panic(err)
	}
	log := logger.Sugar
	defer func() { _ = logger.Logger.Sync() }()

	authority := token.NewAuthority(cfg.TrustedPrefixes)
	files, err := store.New(cfg.StorageDir)
	if err != nil {
		log.Fatalw("initializing file store failed", "error", err)
	}

	hub := server.NewHub(log)
	api := server.NewAPI(*cfg, authority, files, hub, log)
	router := server.SetupRouter(api, log)
	httpServer := server.CreateServer(cfg.Port, router)

	log.Infof("Starting LAN Share server on port %s", cfg.Port)
	log.Infof("Auth Token: %s...", authority.Token()[:8])

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, log)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalw("server stopped with error", "error", err)
		}
		return
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second, log); err != nil {
		log.Warnw("http shutdown incomplete", "error", err)
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		log.Warnw("hub shutdown incomplete", "error", err)
	}
}

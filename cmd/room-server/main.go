package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pawnhub/chess-room-server/internal/archive"
	appcfg "github.com/pawnhub/chess-room-server/internal/config"
	"github.com/pawnhub/chess-room-server/internal/msgcat"
	"github.com/pawnhub/chess-room-server/internal/obslog"
	"github.com/pawnhub/chess-room-server/internal/oracle"
	"github.com/pawnhub/chess-room-server/internal/relay"
	"github.com/pawnhub/chess-room-server/internal/room"
	"github.com/pawnhub/chess-room-server/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	reg := room.NewRegistry(cfg.MaxRoomsPerServer)
	bcast := relay.NewBroadcaster(cfg.WriteTimeout)
	mgr := room.NewManager(reg, oracle.NewEngine(), room.NewCryptoPicker(), bcast, cat)

	var store *archive.Store
	if cfg.RedisURL != "" {
		store, err = archive.NewStore(cfg.RedisURL, cfg.ArchiveTTL)
		if err != nil {
			log.Fatalf("archive store init error: %v", err)
		}
	}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("results repository init error: %v", err)
		}
	}
	if store != nil || repo != nil {
		mgr.AttachArchiver(archive.New(store, repo))
	}

	server := ws.NewServer(mgr, bcast, cfg.SendQueueSize, cfg.WriteTimeout)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("server_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}

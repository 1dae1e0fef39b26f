package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/pttstar/internal/adapters/http"
	"github.com/dkeye/pttstar/internal/adapters/relay"
	"github.com/dkeye/pttstar/internal/app/hub"
	"github.com/dkeye/pttstar/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := pflag.NewFlagSet("pttstar-server", pflag.ExitOnError)
	fs.String("config", config.FileName(), "path to the YAML config file")
	fs.Int("port", 8080, "listen port")
	fs.String("mode", "release", "gin mode: release, debug or test")
	fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	// Initialize the global logger early so config.LoadServer can use it.
	config.SetupLogger("info")
	cfg, err := config.LoadServer(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogger(cfg.LogLevel)

	board := hub.NewBoard(cfg.RoomCapacity)
	directory := hub.NewDirectory(cfg.DirectorySize)
	limiter := relay.NewJoinLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow)
	ctl := relay.NewController(hub.NewRegistry(), limiter)
	ctl.JoinToken = cfg.JoinToken
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod

	r := router.SetupRouter(ctx, cfg, router.Server{Board: board, Directory: directory, Relay: ctl})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("pttstar server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		pruneRooms(gctx, board, limiter, cfg.RoomTTL)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func pruneRooms(ctx context.Context, board *hub.Board, limiter *relay.JoinLimiter, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			board.Prune(now.Add(-ttl))
			limiter.Prune()
		}
	}
}

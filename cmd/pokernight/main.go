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

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/pokernight/pokernight/internal/server"
	"github.com/pokernight/pokernight/internal/store"
)

var CLI struct {
	Config    string `short:"c" long:"config" default:"pokernight.hcl" help:"Path to HCL configuration file"`
	Addr      string `short:"a" long:"addr" help:"Listen address (overrides config)"`
	Port      int    `short:"p" long:"port" help:"Listen port (overrides config)"`
	LogLevel  string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	RedisURL  string `long:"redis-url" env:"REDIS_URL" help:"Redis connection URL (overrides config)"`
	AdminPass string `long:"admin-password" env:"ADMIN_PASSWORD" help:"Admin dashboard password (overrides config)"`
	RateLimit bool   `long:"rate-limit" env:"RATE_LIMIT_ENABLED" help:"Enable per-IP rate limiting"`
	InMemory  bool   `long:"in-memory" help:"Use the in-memory store instead of Redis (state is lost on restart)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.RedisURL != "" {
		cfg.Redis.URL = CLI.RedisURL
	}
	if CLI.AdminPass != "" {
		cfg.Server.AdminPassword = CLI.AdminPass
	}
	if CLI.RateLimit {
		cfg.Server.RateLimitEnabled = true
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if CLI.InMemory {
		logger.Warn("using in-memory store, games will not survive a restart")
		st = store.NewMemory()
	} else {
		redis, err := store.NewRedis(cfg.Redis.URL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			kctx.Exit(1)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redis.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Error("cannot reach redis", "url", cfg.Redis.URL, "error", err)
			kctx.Exit(1)
		}
		st = redis
	}
	defer st.Close()

	clock := quartz.NewReal()
	registry := server.NewRegistry(clock, logger)
	coord := server.NewCoordinator(st, registry, clock, cfg.Games, logger)
	scheduler := server.NewScheduler(coord, clock, logger)
	cleaner := server.NewCleaner(st, clock, logger)
	srv := server.NewServer(cfg, coord, registry, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting pokernight server", "addr", addr, "admin", cfg.Server.AdminPassword != "")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Run(ctx)
		return nil
	})
	g.Go(func() error {
		registry.Run(ctx)
		return nil
	})
	g.Go(func() error {
		cleaner.Run(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		kctx.Exit(1)
	}
}

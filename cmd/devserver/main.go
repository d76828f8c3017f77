// Command flasheng-devserver serves an in-memory FlashEng API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/config"
	"github.com/and161185/flasheng/internal/devserver"
	"github.com/and161185/flasheng/internal/limiter"
	"github.com/and161185/flasheng/internal/logger"
	"github.com/and161185/flasheng/internal/metrics"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, seeds the store and serves until SIGINT/SIGTERM.
func main() {
	cfgPath := flag.String("config", "", "config file (default flasheng.yaml)")
	addr := flag.String("addr", "", "listen address (overrides devserver.addr)")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (overrides devserver.jwt_key)")
	seed := flag.Uint64("seed", 0, "catalog seed, 0 for random")
	logLevel := flag.String("log-level", "", "log level (overrides log.level)")
	tracing := flag.Bool("tracing", false, "wrap the handler with otelhttp")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	if *addr != "" {
		cfg.DevServer.Addr = *addr
	}
	if *jwtKey != "" {
		cfg.DevServer.JWTKey = *jwtKey
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	cfg.Log.Format = "json"

	log, err := logger.New(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.DevServer.Addr),
	)

	if cfg.DevServer.JWTKey == "" {
		log.Fatal("missing jwt signing key (--jwt-key or FLASHENG_DEVSERVER_JWT_KEY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var lim limiter.Limiter = limiter.NewMemory(limiter.DefaultPolicy)
	if cfg.DevServer.Limiter == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.DevServer.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping", zap.Error(err))
		}
		lim = limiter.NewRedis(rdb, limiter.DefaultPolicy)
	}

	dcfg := devserver.ConfigFrom(cfg.DevServer)
	dcfg.Seed = *seed
	opts := []devserver.Option{devserver.WithMetrics(metrics.NewHTTP("flasheng_devserver"))}
	if *tracing {
		opts = append(opts, devserver.WithTracing())
	}
	srv, err := devserver.New(dcfg, lim, log, opts...)
	if err != nil {
		log.Fatal("devserver", zap.Error(err))
	}

	hs := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", hs.Addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Warn("forced shutdown", zap.Error(err))
			_ = hs.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("shutdown complete")
}

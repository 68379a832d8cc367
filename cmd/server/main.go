// Command server wires every port implementation together and runs
// the HTTP/WebSocket process, grounded on the teacher's cmd/app/main.go
// bootstrap shape: load config, connect storage, build the gin engine,
// run until signalled, shut down gracefully.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ludo/internal/clockrand"
	"ludo/internal/config"
	"ludo/internal/db"
	"ludo/internal/httpapi"
	"ludo/internal/idempotency"
	"ludo/internal/identity"
	"ludo/internal/logger"
	"ludo/internal/ops"
	"ludo/internal/payment/ton"
	"ludo/internal/registry"
	"ludo/internal/repository"
	tonclient "ludo/internal/ton"
	"ludo/internal/ws"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyTTL = 15 * time.Minute
	shutdownGrace  = 10 * time.Second
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat == "json")
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgPool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	guard := idempotency.New(redisClient, idempotencyTTL)
	persistence := repository.NewPersistenceRepository(pgPool, guard)

	opsNotifier, err := ops.New(cfg.OpsBotToken, cfg.OpsChatID, log.With("component", "ops"))
	if err != nil {
		log.Warn("ops notifier disabled", "error", err)
	}

	jwtIdentity := identity.New(cfg.JWTSecret, cfg.JWTTTL)

	reg := registry.New(persistence, clockrand.RealClock{}, clockrand.SecureRandom{}, log.With("component", "registry"), opsNotifier)

	if cfg.TONPlatformWallet != "" {
		network := tonclient.NetworkMainnet
		if cfg.TONNetwork == "testnet" {
			network = tonclient.NetworkTestnet
		}
		tonClient := tonclient.NewClient(network, cfg.TONAPIKey)
		watcher := ton.New(tonClient, persistence, persistence, cfg.TONPlatformWallet, tonclient.DepositCheckInterval, log.With("component", "deposit_watcher"))
		go watcher.Start(ctx)
	}

	wsHandler := ws.NewHandler(reg, jwtIdentity, cfg.AllowedOrigin, log.With("component", "ws"))
	api := httpapi.New(jwtIdentity, cfg.TelegramBotToken, wsHandler, log.With("component", "httpapi"))

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.Register(engine)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

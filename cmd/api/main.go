package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consult-platform/internal/audit"
	"consult-platform/internal/auth"
	"consult-platform/internal/catalog"
	"consult-platform/internal/config"
	"consult-platform/internal/history"
	"consult-platform/internal/httpapi"
	"consult-platform/internal/ledger"
	"consult-platform/internal/session"
	"consult-platform/internal/video"
	"consult-platform/pkg/logger"
	"consult-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Domain services
	coins := ledger.NewService(ledger.NewPostgresStore(db))
	listings := catalog.NewPostgresRepo(db)
	rooms := video.NewTwilioProvider(video.TwilioConfig{
		AccountSID: cfg.Video.AccountSID,
		APIKeySID:  cfg.Video.APIKeySID,
		APISecret:  cfg.Video.APISecret,
	})
	sessionStore := session.NewPostgresStore(db)
	sessions := session.NewService(sessionStore, coins, listings, rooms, session.Config{
		MinDurationMinutes:    cfg.Calls.MinDurationMinutes,
		MaxDurationMinutes:    cfg.Calls.MaxDurationMinutes,
		ResponseWindow:        cfg.Calls.ResponseWindow,
		LowBalanceWarnMinutes: cfg.Calls.LowBalanceWarnMinutes,
	}, log)
	defer sessions.Close()

	h := httpapi.Handlers{
		Auth:     authManager,
		Coins:    coins,
		Sessions: sessions,
		History:  history.NewService(sessionStore),
		Listings: listings,
		Audit:    audit.NewService(audit.NewPostgresRepo(db)),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), routeOptions{
		roomEvents: video.StatusWebhookHandler{Sessions: sessions},
		redis:      rdb,
		startLimit: cfg.Calls.ConcurrentStartLimit,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clicker_webapp/internal/config"
	"clicker_webapp/internal/db"
	httpServer "clicker_webapp/internal/http"
	"clicker_webapp/internal/http/handlers"
	"clicker_webapp/internal/http/middleware"
	"clicker_webapp/internal/logger"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/rates"
	"clicker_webapp/internal/service"
	"clicker_webapp/internal/storage"
	"clicker_webapp/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	store := storage.NewPostgres(dbPool)
	hub := ws.NewHub()
	var notifier notify.Notifier = hub

	jwtm := service.NewJWTManager(cfg.JWTSecret)
	ratesClient := rates.NewClient(cfg.RateBaseURL)
	gate := service.NewRedisClickGate(middleware.RedisClient(), cfg.ClickCooldown)

	referrals := service.NewReferralService(store)
	clicker := service.NewClickerService(store, notifier, gate)
	storeSvc := service.NewStoreService(store, notifier)

	h := &handlers.Handler{
		Auth:         service.NewAuthService(store, notifier, jwtm),
		Transactions: service.NewTransactionService(store, ratesClient, notifier, cfg.TonWalletAddress, cfg.RateQuote),
		Packages:     service.NewPackageService(store, referrals, notifier),
		Store:        storeSvc,
		Clicker:      clicker,
		Referrals:    referrals,
		Admin:        service.NewAdminService(store, notifier),
		JWT:          jwtm,
	}

	hub.OnClick = func(ctx context.Context, userID int64) (any, error) {
		res, err := clicker.Click(ctx, userID)
		if err != nil || res.Throttled {
			return nil, err
		}
		return res, nil
	}
	hub.OnConnect = func(ctx context.Context, userID int64) {
		if err := storeSvc.SweepExpired(ctx, userID); err != nil {
			logger.Warn("sweep expired purchases", "user_id", userID, "error", err)
		}
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := handlers.NewHealthHandler(dbPool, version)
	httpServer.RegisterRoutes(r, h, health, hub, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

const version = "1.0.0"

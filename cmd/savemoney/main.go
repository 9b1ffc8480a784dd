package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/cache"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/config"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/db"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/logger"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/routers"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/service"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Не удалось инициализировать zap logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
		if r := recover(); r != nil {
			zl.Fatal("Неожиданное завершение приложения", zap.Any("panic", r))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Init(ctx, cfg.DatabaseURI)
	if err != nil {
		zl.Fatal("Ошибка подключения к БД", zap.Error(err))
	}
	defer func() {
		zl.Info("Закрытие соединения с БД")
		pool.Close()
	}()

	if err := db.Migrate(ctx, pool); err != nil {
		zl.Fatal("Ошибка миграции БД", zap.Error(err))
	}

	var balanceCache service.BalanceCache
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		c := cache.NewBalanceCache(client, cfg.BalanceCacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			zl.Warn("Redis недоступен, кэш балансов отключён", zap.Error(err))
		} else {
			balanceCache = c
		}
		cancel()
	}

	userRepo := db.NewUserRepoPG(pool)
	ledger := service.NewLedgerService(
		userRepo,
		db.NewTransactionRepoPG(pool),
		db.NewWithdrawalRepoPG(pool),
		balanceCache,
		zl,
		cfg.DBTimeout,
	)

	var workerDone <-chan struct{}
	if cfg.TrackingSystemAddress != "" {
		client := service.NewHTTPTrackingClient(cfg.TrackingSystemAddress, &http.Client{Timeout: 10 * time.Second})
		workerDone = ledger.StartTrackingWorker(ctx, client, cfg.TrackingInterval)
	}

	h := routers.NewHandler(ledger, userRepo, zl)
	r := routers.SetupRoutersWithLogger(h, routers.RouterOptions{
		Auth:        routers.NewAuthenticator(cfg.JWTSecret, cfg.AdminKeyHash),
		Withdrawals: routers.NewRateLimiter(cfg.WithdrawRatePerMinute, cfg.WithdrawBurst),
		CORSOrigins: cfg.CORSOrigins,
	}, zl)

	srv := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zl.Info("Сервер запущен", zap.String("address", cfg.RunAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("Ошибка запуска сервера", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("Остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Ошибка остановки сервера", zap.Error(err))
	}
	if workerDone != nil {
		<-workerDone
	}
}

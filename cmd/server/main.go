package main // Entry point package

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
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/config"
	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/logging"
	"github.com/iliyamo/cinema-ticket-booking/internal/notify"
	"github.com/iliyamo/cinema-ticket-booking/internal/payment"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/router"
	"github.com/iliyamo/cinema-ticket-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load() // Load environment config
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("database migrate failed", zap.Error(err))
	}

	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled", zap.String("addr", redisCfg.Addr))
	} else {
		defer rdb.Close()
	}

	payCfg := config.LoadPaymentConfig()
	if payCfg.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents will fail")
	}
	payments := payment.NewBridge(payment.NewStripeGateway(payCfg.SecretKey), payment.Options{
		Currency:           payCfg.Currency,
		WebhookSecret:      payCfg.WebhookSecret,
		VerifyTransactions: payCfg.VerifyTransactions,
	}, logger.Named("payment"))

	dispatcher, err := notify.NewDispatcher(notify.NewSMTPMailer(config.LoadMailConfig()), logger.Named("notify"))
	if err != nil {
		logger.Fatal("mail templates", zap.Error(err))
	}

	var notifier service.Notifier = dispatcher
	queueCfg := config.LoadQueueConfig()
	if queueCfg.Mode == config.NotifyQueue {
		notifier = queue.NewPublisher(queueCfg.URL, logger.Named("publisher"))
		consumer := queue.NewConsumer(queueCfg.URL, dispatcher, logger.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ticket consumer stopped", zap.Error(err))
			}
		}()
	}
	logger.Info("notifications", zap.String("mode", queueCfg.Mode))

	e := router.New(router.Deps{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Payments:  payments,
		Notifier:  notifier,
		Mail:      dispatcher,
		Log:       logger,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

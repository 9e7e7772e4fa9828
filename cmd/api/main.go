package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/flightsplit-backend/internal/api"
	"github.com/baharkarakas/flightsplit-backend/internal/auth"
	"github.com/baharkarakas/flightsplit-backend/internal/config"
	"github.com/baharkarakas/flightsplit-backend/internal/db"
	"github.com/baharkarakas/flightsplit-backend/internal/logger"
	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
	"github.com/baharkarakas/flightsplit-backend/internal/notify"
	"github.com/baharkarakas/flightsplit-backend/internal/reconcile"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
	"github.com/baharkarakas/flightsplit-backend/internal/repository/postgres"
	"github.com/baharkarakas/flightsplit-backend/internal/repository/sqlite"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
	"github.com/baharkarakas/flightsplit-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogFile)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeDB, err := openRepositories(ctx, cfg, log)
	if err != nil {
		log.Error("db", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer closeDB()

	if err := repos.Settings.EnsureDefaults(ctx, cfg.DefaultFeePercentage); err != nil {
		log.Error("settings defaults", "err", err)
		os.Exit(1)
	}

	metrics.Init()

	wp := worker.NewPool(cfg.Workers, cfg.WorkerQueue, log)
	var bg sync.WaitGroup
	gateway, closeNotify := buildNotifier(ctx, cfg, repos.Users, log, &bg)
	defer drain(&bg, wp, closeNotify)

	settingsSvc := services.NewSettingsService(repos.Settings, repos.AuditLogs, log)
	offerSvc := services.NewOfferService(services.OfferServiceDeps{
		Offers:       repos.Offers,
		Transactions: repos.Transactions,
		AuditLogs:    repos.AuditLogs,
		Fees:         settingsSvc,
		Notifier:     gateway,
		Workers:      wp,
		Logger:       log,
	})

	sched := reconcile.NewScheduler(reconcile.SchedulerConfig{
		Reconciler: offerSvc,
		Interval:   cfg.ReconcileInterval,
		Logger:     log,
	})
	bg.Add(1)
	go func() {
		defer bg.Done()
		sched.Start(ctx)
	}()

	r := api.NewRouter(api.RouterDeps{
		Env:               cfg.Env,
		CORSOrigins:       cfg.CORSOrigins,
		RateRPS:           cfg.RateRPS,
		RateBurst:         cfg.RateBurst,
		RequestTimeout:    cfg.RequestTimeout,
		WebhookSecretHash: cfg.PaymentWebhookSecretHash,
		Tokens:            auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL),
		Offers:            offerSvc,
		Settings:          settingsSvc,
		Logger:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "db", cfg.DBDriver, "notify", cfg.NotifyDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
}

// drain runs after the HTTP server has stopped and before the database is
// closed. Pending worker jobs still hand their notifications to the open
// notifier; only then is the notifier closed.
func drain(bg *sync.WaitGroup, wp interface{ Stop() }, closeNotify func()) {
	bg.Wait()
	wp.Stop()
	closeNotify()
}

func openRepositories(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Repositories, func(), error) {
	if cfg.DBDriver == "sqlite" {
		gdb, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		closeFn := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		log.Info("using sqlite", "path", cfg.SQLitePath)
		return sqlite.NewRepositories(gdb), closeFn, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, err
		}
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}

// buildNotifier returns the gateway the engine hands notifications to. With
// the redis driver it also starts the queue dispatcher on bg.
func buildNotifier(ctx context.Context, cfg config.Config, users repository.Users, log *slog.Logger, bg *sync.WaitGroup) (notify.Gateway, func()) {
	if cfg.NotifyDriver != "redis" {
		return notify.NewLogGateway(log), func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup, notifications will queue once it is back", "addr", cfg.RedisAddr, "err", err)
	}

	var senders []notify.Sender
	if cfg.SMTPHost != "" {
		senders = append(senders, notify.NewEmailSender(cfg.EmailFrom, cfg.EmailFromName,
			cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass))
	}
	if cfg.SMSWebhookURL != "" {
		senders = append(senders, notify.NewSMSSender(cfg.SMSWebhookURL, &http.Client{Timeout: 10 * time.Second}))
	}
	if len(senders) == 0 {
		log.Warn("redis notifications enabled without SMTP_HOST or SMS_WEBHOOK_URL; jobs will be dropped")
	}

	d := notify.NewDispatcher(notify.DispatcherConfig{
		Redis:      rdb,
		Queue:      cfg.NotifyQueue,
		Users:      users,
		Senders:    senders,
		RetryDelay: time.Second,
		Logger:     log,
	})
	bg.Add(1)
	go func() {
		defer bg.Done()
		d.Start(ctx)
	}()

	return notify.NewQueueGateway(rdb, cfg.NotifyQueue), func() { _ = rdb.Close() }
}

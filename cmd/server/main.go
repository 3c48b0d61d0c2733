package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/finders-backend/internal/auth"
	"github.com/ignatzorin/finders-backend/internal/config"
	"github.com/ignatzorin/finders-backend/internal/db"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	httpRouter "github.com/ignatzorin/finders-backend/internal/http/router"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/lock"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	infrapayment "github.com/ignatzorin/finders-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/finders-backend/internal/interface/http/handler"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/scheduler"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/find"
	"github.com/ignatzorin/finders-backend/internal/usecase/finder"
	"github.com/ignatzorin/finders-backend/internal/usecase/moderation"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
	"github.com/ignatzorin/finders-backend/internal/ws"
	"github.com/ignatzorin/finders-backend/migrations"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "production" {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}
	mainLog := logger.WithComponent("main")

	health := map[string]handler.HealthCheck{}

	// Хранилище.
	repos, closeStorage, err := openStorage(ctx, cfg, health)
	if err != nil {
		log.Fatalf("main: ошибка подключения к хранилищу: %v", err)
	}
	defer closeStorage()

	// Вебсокеты и уведомления.
	hub := ws.NewHub()
	go hub.Run(ctx)

	dispatcher := notify.NewDispatcher(repos.Notifications, repos.Users, notify.NewLogMailer(cfg.MailFrom), notify.WithPusher(hub))

	// Сценарии.
	settingsProvider := settings.NewProvider(repos.Settings)
	ledger := token.NewLedger(repos.Tx, repos.Clients, repos.Finders, repos.Ledger)
	distributor := token.NewMonthlyDistributor(repos.Tx, repos.Finders, repos.Levels, repos.Ledger, settingsProvider)
	levels := finder.NewLevelCalculator(repos.Finders, repos.Levels)

	strikes := moderation.NewStrikeService(repos.Strikes, repos.Users, dispatcher)
	disputes := moderation.NewDisputeService(repos.Disputes, repos.Contracts, repos.Finds, repos.Strikes, dispatcher)
	finds := find.NewService(repos.Tx, repos.Finds, repos.Proposals, ledger, settingsProvider, strikes)

	gateway := infrapayment.NewGateway(cfg.Payment)
	settler := contract.NewSettler(repos.Tx, repos.Contracts, repos.Finds, repos.Finders, repos.Ledger, settingsProvider, levels, dispatcher)
	contracts := contract.NewService(repos, settler, gateway, dispatcher, contract.Config{
		SubmissionAutoReleaseWindow: cfg.Scheduler.SubmissionAutoReleaseWindow,
		PaymentRedirectURL:          cfg.Payment.RedirectURL,
	})
	sweep := contract.NewSettlementSweep(repos.Tx, repos.Contracts, repos.Submissions, settler, dispatcher,
		cfg.Scheduler.CompletedReleaseWindow, cfg.Scheduler.BatchSize)
	payments := payment.NewProcessor(gateway, infrapayment.NewWebhookVerifier(cfg.Payment.WebhookSecret),
		contracts, ledger, settingsProvider, repos.Contracts, repos.Users, cfg.Payment.RedirectURL)

	// Фоновые задачи.
	var locker scheduler.Locker
	if cfg.Redis.Enabled() {
		client, err := lock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("main: ошибка подключения к redis: %v", err)
		}
		defer safeCloseRedis(client)
		locker = lock.NewRedisLocker(client, cfg.Scheduler.LockTTL)
		health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	supervisor := scheduler.NewSupervisor(locker)
	supervisor.Register(scheduler.SettlementJob(sweep, cfg.Scheduler.SettlementInterval))
	supervisor.Register(scheduler.MonthlyTokenJob(distributor, cfg.Scheduler.TokenGrantInterval))
	supervisor.Register(scheduler.StrikeExpiryJob(strikes, cfg.Scheduler.StrikeExpiryInterval))
	supervisor.Start(ctx)
	defer supervisor.Stop()

	// HTTP.
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, 0)
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Health:        handler.NewHealthHandler(health),
		Finds:         handler.NewFindHandler(finds),
		Contracts:     handler.NewContractHandler(contracts, payments),
		Tokens:        handler.NewTokenHandler(ledger, distributor, payments, repos.Finders, repos.Clients),
		Moderation:    handler.NewModerationHandler(disputes, strikes),
		Settings:      handler.NewSettingsHandler(settingsProvider),
		Notifications: handler.NewNotificationHandler(repos.Notifications),
		Webhooks:      handler.NewWebhookHandler(payments),
		WS:            handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLog.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	mainLog.WithField("port", cfg.HTTPPort).WithField("storage", cfg.StorageDriver).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// openStorage подключает postgres с миграциями или, для локального запуска, память.
func openStorage(ctx context.Context, cfg *config.Config, health map[string]handler.HealthCheck) (repository.Registry, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		store.SeedLevels(memory.DefaultLevels()...)
		logger.WithComponent("main").Warn("используется хранилище в памяти, данные не сохраняются")
		return store.Registry(), func() {}, nil
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return repository.Registry{}, nil, err
	}
	if err := db.RunMigrations(ctx, dbConn, migrations.FS); err != nil {
		safeClose(dbConn)
		return repository.Registry{}, nil, err
	}
	health["database"] = dbConn.PingContext
	return persistence.NewRegistry(dbConn), func() { safeClose(dbConn) }, nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

func safeCloseRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("main: ошибка закрытия redis: %v", err)
	}
}

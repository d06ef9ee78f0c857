package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridebook/internal/app"
	"ridebook/internal/config"
	"ridebook/internal/domain"
	"ridebook/internal/events"
	"ridebook/internal/handler"
	"ridebook/internal/logger"
	"ridebook/internal/middleware"
	internalRedis "ridebook/internal/redis"
	"ridebook/internal/repository"
	"ridebook/internal/repository/memory"
	"ridebook/internal/repository/postgres"
	"ridebook/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so nothing better than stderr exists yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	defaults := domain.Rates{
		TaxRatePct:        cfg.Pricing.DefaultTaxRatePct,
		CommissionRatePct: cfg.Pricing.DefaultCommissionRatePct,
	}

	store, err := openStore(ctx, cfg, nrApp, defaults, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.WithField("addr", cfg.Redis.Addr).Info("connected to Redis")
	}

	publisher, closePublisher := openPublisher(cfg.RabbitMQ, log)
	defer closePublisher()

	gin.SetMode(cfg.Server.GinMode)
	server := wireServer(cfg, store, redisClient, publisher, defaults, nrApp, log)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	log.Info("server exited")
}

// backingStore is the persistence selected by DB_DRIVER.
type backingStore struct {
	tx     repository.TxManager
	repos  repository.Repositories
	pinger handler.Pinger
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, defaults domain.Rates, log *logger.Logger) (*backingStore, error) {
	if cfg.Database.Driver == config.DriverMemory {
		mem := memory.NewStore(defaults)
		log.Warn("using in-memory store; data is lost on exit")
		return &backingStore{
			tx:    mem,
			repos: mem.Repositories(),
			close: func() {},
		}, nil
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, log)
	if err != nil {
		return nil, err
	}
	log.WithField("host", cfg.Database.Host).Info("connected to PostgreSQL")
	return &backingStore{
		tx:     postgres.NewTxManager(db),
		repos:  postgres.NewRepositories(db),
		pinger: db,
		close:  func() { closeDB(db, log) },
	}, nil
}

func closeDB(db *sql.DB, log *logger.Logger) {
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
	}
}

func openPublisher(cfg config.RabbitMQConfig, log *logger.Logger) (service.EventPublisher, func()) {
	fallback := service.NewLogPublisher(log)
	if cfg.URL == "" {
		return fallback, func() {}
	}

	pub, err := events.NewPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		log.WithError(err).Warn("failed to connect to RabbitMQ; events go to the log only")
		return fallback, func() {}
	}
	log.WithField("exchange", cfg.Exchange).Info("publishing events to RabbitMQ")
	return events.WithTimeout(pub), func() {
		if err := pub.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	store *backingStore,
	redisClient *redis.Client,
	publisher service.EventPublisher,
	defaults domain.Rates,
	nrApp *newrelic.Application,
	log *logger.Logger,
) *http.Server {
	// Redis-backed stores stay nil interfaces when Redis is disabled.
	var (
		categories service.CategoryCache
		summaries  service.SummaryCache
		responses  middleware.ResponseStore
	)
	if redisClient != nil {
		cacheStore := internalRedis.NewCacheStore(redisClient)
		categories = cacheStore
		summaries = cacheStore
		responses = internalRedis.NewIdempotencyStore(redisClient)
	}

	// Initialize services.
	resolver := service.NewResolver(log)
	payments := service.NewPaymentAuthorizer(log)
	rates := service.NewRateService(store.repos, defaults, log)

	bookingService := service.NewBookingService(service.BookingServiceDeps{
		TxManager:   store.tx,
		Repos:       store.repos,
		Resolver:    resolver,
		Payments:    payments,
		Rates:       rates,
		Categories:  categories,
		Events:      publisher,
		LockTimeout: cfg.Booking.LockTimeout,
		Logger:      log,
	})
	settlementService := service.NewSettlementService(service.SettlementServiceDeps{
		TxManager:   store.tx,
		Repos:       store.repos,
		Payments:    payments,
		Rates:       rates,
		Summaries:   summaries,
		Events:      publisher,
		LockTimeout: cfg.Booking.LockTimeout,
		Logger:      log,
	})
	ledgerService := service.NewLedgerService(store.repos, rates)
	directoryService := service.NewDirectoryService(store.tx, store.repos, resolver, summaries, log)

	// Initialize handlers.
	router := app.NewRouter(app.RouterDeps{
		BookingHandler:     handler.NewBookingHandler(bookingService),
		RideHandler:        handler.NewRideHandler(directoryService, settlementService),
		DriverHandler:      handler.NewDriverHandler(directoryService, settlementService),
		RiderHandler:       handler.NewRiderHandler(directoryService),
		BankAccountHandler: handler.NewBankAccountHandler(directoryService),
		RatesHandler:       handler.NewRatesHandler(rates),
		ReportHandler:      handler.NewReportHandler(ledgerService),
		HealthHandler:      handler.NewHealthHandler(store.pinger),
		IdempotencyStore:   responses,
		NewRelicApp:        nrApp,
		Logger:             log,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/booking"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/notify"
	"salonbook/internal/payments"
	"salonbook/internal/reconcile"
	"salonbook/internal/repository"
	"salonbook/internal/schedule"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, cache := initScheduleCache(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	processor := initPayments(cfg, &logger)

	notifier, err := initNotifier(cfg, &logger)
	if err != nil {
		return err
	}
	notifyWorker := notify.NewWorker(notifier, redisClient, notify.RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}, &logger)
	go notifyWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	scheduler := schedule.NewScheduler(db, cache, &logger)
	scheduler.SetLeadTime(cfg.Booking.ClientLeadTimeMinutes)

	bookingService := booking.NewService(db, processor, notifyWorker, eventBus, cache, &logger)
	bookingService.SetCancellationWindow(cfg.Booking.CancellationWindowHours)

	reporter := reconcile.NewReporter(db, &logger)
	reporter.SetExportDir(cfg.Exports.Path)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	httpServer := api.NewHTTPServer(cfg.API, db, scheduler, bookingService, reporter, &logger)
	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	if err := loadCatalog(cfg, &logger); err != nil {
		return nil, zerolog.Logger{}, closer, err
	}

	return cfg, logger, closer, nil
}

// loadCatalog merges the optional standalone catalog file into the config.
// Keeping services and employees in their own file lets ops edit the catalog
// without touching server settings.
func loadCatalog(cfg *config.Config, logger *zerolog.Logger) error {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return err
	}

	var catalog struct {
		Services  []models.Service  `yaml:"services"`
		Employees []models.Employee `yaml:"employees"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return err
	}

	cfg.Services = append(cfg.Services, catalog.Services...)
	cfg.Employees = append(cfg.Employees, catalog.Employees...)

	if err := config.ValidateCatalog(cfg.Services, cfg.Employees); err != nil {
		logger.Error().Err(err).Msg("catalog validation failed")
		return err
	}
	return nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("create exports directory")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init database")
		return nil, err
	}

	ctx := context.Background()
	for i := range cfg.Services {
		if err := db.UpsertService(ctx, &cfg.Services[i]); err != nil {
			logger.Error().Err(err).Str("service_id", cfg.Services[i].ID).Msg("seed service")
		}
	}
	for i := range cfg.Employees {
		if err := db.UpsertEmployee(ctx, &cfg.Employees[i]); err != nil {
			logger.Error().Err(err).Str("employee_id", cfg.Employees[i].ID).Msg("seed employee")
		}
	}
	return db, nil
}

func initScheduleCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.ScheduleCache) {
	ttl := time.Duration(cfg.Booking.ScheduleCacheTTLSeconds) * time.Second
	fallback := repository.NewMemoryScheduleCache(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable")
	}

	primary := repository.NewRedisScheduleCache(redisClient, ttl)
	return redisClient, repository.NewFailoverScheduleCache(primary, fallback, logger)
}

func initPayments(cfg *config.Config, logger *zerolog.Logger) domain.PaymentProcessor {
	if !cfg.Stripe.Enabled {
		logger.Warn().Msg("stripe disabled, bookings must be created unpaid")
		return nil
	}
	return payments.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.Currency, logger)
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) (domain.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return notify.NewTelegramNotifier(nil, logger), nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create telegram bot")
		return nil, err
	}
	botAPI.Debug = cfg.Telegram.Debug

	return notify.NewTelegramNotifier(botAPI, logger), nil
}

func subscribeBookingEvents(eventBus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "events").Logger()
	handler := func(event *events.Event) error {
		audit.Info().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}

	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventBookingNoShow,
		events.EventBookingUpdated,
	} {
		eventBus.Subscribe(eventType, handler)
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("server stopped")
	return nil
}

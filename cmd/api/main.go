package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"oriyet/config"
	_ "oriyet/docs"
	"oriyet/internal/adapters/auth"
	"oriyet/internal/adapters/email"
	"oriyet/internal/adapters/gateway"
	"oriyet/internal/adapters/lock"
	httpdelivery "oriyet/internal/delivery/http"
	"oriyet/internal/delivery/http/controllers"
	"oriyet/internal/delivery/http/middleware"
	"oriyet/internal/repository/postgres"
	"oriyet/internal/services"
	"oriyet/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// @title       ORIYET API
// @version     1.0
// @description Event registration, payments and certificates.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	tx := postgres.NewTransactor(db)
	eventRepo := postgres.NewEventRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	certificateRepo := postgres.NewCertificateRepository(db)
	userRepo := postgres.NewUserRepository(db)

	lookups := services.NewLookupResolver(postgres.NewLookupRepository(db), logger)
	// Missing reference rows are a seeding error; refuse to start.
	if err := lookups.Warm(ctx); err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		Queue: email.QueueConfig{
			URL:         cfg.Email.AMQPURL,
			QueueName:   cfg.Email.QueueName,
			MaxAttempts: cfg.Email.MaxAttempts,
			RetryDelay:  cfg.Email.RetryDelay,
		},
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := mailer.(io.Closer); ok {
		defer closer.Close()
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	notifier := services.NewNotificationDispatcher(mailer, renderer, logger)

	payGateway := gateway.NewUddoktaPay(gateway.UddoktaPayConfig{
		APIKey:      cfg.Payment.APIKey,
		CheckoutURL: cfg.Payment.CheckoutURL,
		VerifyURL:   cfg.Payment.VerifyURL,
	}, &http.Client{Timeout: 30 * time.Second})

	timeout := cfg.RequestTimeout
	validator := services.NewPaymentValidator(eventRepo, registrationRepo, paymentRepo, lookups, logger)
	eventService := services.NewEventService(eventRepo, lookups, tx, logger, timeout)
	registrationService := services.NewRegistrationService(tx, eventRepo, registrationRepo, paymentRepo,
		certificateRepo, userRepo, lookups, notifier, logger, timeout)
	paymentService := services.NewPaymentService(tx, validator, eventRepo, registrationRepo, paymentRepo,
		certificateRepo, userRepo, lookups, payGateway, notifier, services.PaymentSettings{
			PendingTimeout: cfg.Payment.PendingTimeout,
			FrontendURL:    cfg.FrontendURL,
			BackendURL:     cfg.BackendURL,
			WebhookAPIKey:  cfg.Payment.WebhookAPIKey,
		}, logger, timeout)
	certificateService := services.NewCertificateService(certificateRepo, registrationRepo, eventRepo, logger, timeout)

	checks := map[string]controllers.HealthCheck{"database": db.PingContext}
	var locker worker.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb := lock.NewRedisClient(lock.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		locker = lock.NewRedisLocker(rdb, "oriyet:lock:")
	}

	// Workers stop and drain before the database and redis clients close, on every return path.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers worker.Group
	defer func() {
		stopWorkers()
		workers.Wait()
	}()
	if cfg.Workers.Enabled {
		workers.Go(workerCtx, worker.NewStatusSweeper(eventService, cfg.Workers.SweepInterval, locker, logger))
		workers.Go(workerCtx, worker.NewPaymentExpirer(paymentService, cfg.Workers.ExpiryInterval, locker, logger))
	}

	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Events:        controllers.NewEventController(logger, eventService),
		Registrations: controllers.NewRegistrationController(logger, registrationService),
		Payments:      controllers.NewPaymentController(logger, paymentService),
		Certificates:  controllers.NewCertificateController(logger, certificateService),
		Health:        controllers.NewHealthController(logger, checks),
	}, auth.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Issuer), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// Let in-flight confirmation and refund emails finish before the mailer closes.
	notifier.Wait()
	return nil
}

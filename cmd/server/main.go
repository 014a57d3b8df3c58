package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "claimintake/docs"
	"claimintake/internal/assistant"
	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/email/noop"
	sesemail "claimintake/internal/email/ses"
	"claimintake/internal/extractor"
	"claimintake/internal/handler"
	"claimintake/internal/logger"
	"claimintake/internal/policy"
	"claimintake/internal/port"
	"claimintake/internal/providers"
	"claimintake/internal/repository"
	"claimintake/internal/router"
	"claimintake/internal/schema"
	"claimintake/internal/service"
	s3storage "claimintake/internal/storage/s3"
)

// @title Claim Intake API
// @version 1.0
// @description Receipt extraction, claim assembly and schema validation for insurance claims.
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	registry, err := schema.Load(cfg.Schema.Dir)
	if err != nil {
		return fmt.Errorf("failed to load claim schemas: %w", err)
	}
	zl.Info("claim schemas loaded", zap.Int("count", len(registry.ClaimTypes())))

	db, err := repository.Open(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepo(db)
	receiptRepo := repository.NewReceiptRepo(db)
	auditRepo := repository.NewSessionAuditRepo(db)

	// Initialize storage
	store, err := s3storage.NewReceiptStore(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Policy service is optional; a nil directory disables policy context.
	var policies port.PolicyDirectory
	var currencies []domain.Currency
	if cfg.Policy.Enabled() {
		pc := policy.NewClient(&cfg.Policy, zl)
		policies = pc
		currencies = fetchCurrencies(pc, zl)
	}
	catalog := extractor.NewCurrencyCatalog(extractor.DefaultCurrencies(), currencies)

	providers.Register()
	provider, err := extractor.Build(&cfg.Extraction, zl)
	if err != nil {
		return fmt.Errorf("failed to build extraction provider: %w", err)
	}
	receipts := extractor.NewClient(provider, catalog, cfg.Extraction.MinConfidence, zl)

	claimAssistant, err := assistant.New(&cfg.Assistant, zl)
	if err != nil {
		return fmt.Errorf("failed to build claim assistant: %w", err)
	}

	emailSender, err := newEmailSender(&cfg.Email, zl)
	if err != nil {
		return fmt.Errorf("failed to build email sender: %w", err)
	}

	// Initialize services
	pipeline := service.NewPipeline(receipts, claimAssistant, registry, service.PipelineConfig{
		Concurrency: cfg.Extraction.Concurrency,
	}, zl)
	intakeSvc := service.NewIntakeService(
		sessionRepo, receiptRepo, auditRepo, store, policies,
		pipeline, registry, &cfg.S3, &cfg.Extraction, zl,
	)
	submissionSvc := service.NewSubmissionService(sessionRepo, auditRepo, registry, emailSender, zl)
	claimSvc := service.NewClaimService(registry)

	// Setup router
	r := router.Setup(router.Handlers{
		Health:  handler.NewHealthHandler(db, registry),
		Claim:   handler.NewClaimHandler(claimSvc, intakeSvc),
		Session: handler.NewSessionHandler(intakeSvc, submissionSvc),
		Policy:  handler.NewPolicyHandler(intakeSvc),
	}, cfg.CORS.AllowedOrigins, zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := service.NewIntakeQueueWorker(sessionRepo, intakeSvc, service.IntakeQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
	}, zl)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", cfg.Server.Port), zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	<-workerDone
	return nil
}

// fetchCurrencies loads the policy service's currency list once at startup.
// The built-in list is used alone when the call fails.
func fetchCurrencies(pc *policy.Client, zl *zap.Logger) []domain.Currency {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	currencies, err := pc.Currencies(ctx)
	if err != nil {
		zl.Warn("currency list unavailable, using built-in list", zap.Error(err))
		return nil
	}
	return currencies
}

func newEmailSender(cfg *config.EmailConfig, zl *zap.Logger) (port.EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		return sesemail.NewSESSender(cfg.Region, cfg.FromAddress, cfg.FromName)
	case "", "noop":
		return noop.NewNoopSender(zl), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}

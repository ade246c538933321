// Package main provides the entry point for the Odd2 prediction server.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/config"
	"github.com/yourusername/odd2/internal/database"
	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/geo"
	"github.com/yourusername/odd2/internal/health"
	"github.com/yourusername/odd2/internal/logger"
	"github.com/yourusername/odd2/internal/metrics"
	"github.com/yourusername/odd2/internal/payment"
	"github.com/yourusername/odd2/internal/prediction"
	"github.com/yourusername/odd2/internal/repository"
	"github.com/yourusername/odd2/internal/scheduler"
	"github.com/yourusername/odd2/internal/server"
	"github.com/yourusername/odd2/internal/service"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadWithDefaults(os.Getenv("ODD2_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
	}).Info("Odd2 prediction server starting")

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to load timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	if err := db.InitSchema(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to initialize schema")
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to create repositories")
	}

	// Data source
	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.FootballData.TimeoutSeconds) * time.Second
	httpCfg.RateLimit = cfg.FootballData.RateLimit
	httpClient := datasource.NewRateLimitedHTTPClient(httpCfg, appLog)
	source := datasource.NewFootballDataClient(httpClient, cfg.FootballData.BaseURL, cfg.FootballData.APIKey, appLog)

	// Prediction pipeline
	predCfg := prediction.DefaultConfig()
	predCfg.MinTotalOdds = cfg.Prediction.MinTotalOdds
	if cfg.Prediction.LookaheadDays > 0 {
		predCfg.LookaheadDays = cfg.Prediction.LookaheadDays
	}

	analyzer := prediction.NewAnalyzer(source, predCfg)
	estimator := prediction.NewEstimator(predCfg)
	if cfg.Prediction.OddsJitter {
		estimator = prediction.NewJitteredEstimator(predCfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	generator := service.NewGenerator(source, analyzer, estimator, predCfg, db, repos.Prediction, appLog)
	results := service.NewResultsChecker(source, repos.Prediction, appLog)

	// Payments and access
	relworx := payment.NewRelworxClient(&cfg.Relworx, appLog)
	converter := payment.NewCurrencyConverter(repos.ExchangeRate, cfg.Pricing.BaseCurrency, appLog)
	rates := payment.NewRatesRefresher(cfg.ExchangeRates.BaseURL, cfg.ExchangeRates.APIKey, cfg.Pricing.BaseCurrency, repos.ExchangeRate, appLog)
	access := service.NewAccessService(
		repos.Payment,
		repos.Session,
		repos.Prediction,
		relworx,
		converter,
		int64(cfg.Pricing.VIPPriceUGX),
		location,
		appLog,
	)

	locator := geo.NewLocator(appLog)

	// Background jobs
	sched := scheduler.NewScheduler(location, generator, results, rates, repos.Session, cfg.Schedule, appLog)
	if err := sched.ScheduleAll(); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule jobs")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}
	defer sched.Stop()

	// Health and metrics
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Logger:      appLog,
		DB:          db,
		Jobs:        sched,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg, appLog)
	}

	apiServer := server.NewServer(cfg, location, repos.Prediction, access, generator, locator, appLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	healthServer.SetReady(true)
	appLog.Info("Odd2 prediction server ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLog.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLog.WithError(err).Error("API server stopped unexpectedly")
		}
	}

	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("API server shutdown failed")
	}

	appLog.Info("Odd2 prediction server stopped")
}

// startMetricsServer serves the Prometheus registry on its own port
func startMetricsServer(ctx context.Context, cfg *config.Config, appLog *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Package main provides a CLI for running pipeline jobs outside the scheduler.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/odd2/internal/config"
	"github.com/yourusername/odd2/internal/database"
	"github.com/yourusername/odd2/internal/datasource"
	"github.com/yourusername/odd2/internal/logger"
	"github.com/yourusername/odd2/internal/payment"
	"github.com/yourusername/odd2/internal/prediction"
	"github.com/yourusername/odd2/internal/repository"
	"github.com/yourusername/odd2/internal/service"
)

var (
	configFile string
	dryRun     bool

	cfg    *config.Config
	appLog *logrus.Logger
	db     *database.DB
	repos  *repository.Repositories
	source datasource.MatchSource
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate predictions without persisting them")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(ratesCmd)
}

var rootCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run Odd2 pipeline jobs on demand",
	Long:  `Runs individual pipeline jobs (prediction generation, results settlement, exchange rate refresh) outside the scheduler.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and publish new predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context())
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Settle pending predictions against finished matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := service.NewResultsChecker(source, repos.Prediction, appLog)
		return checker.CheckPending(cmd.Context())
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Refresh exchange rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresher := payment.NewRatesRefresher(cfg.ExchangeRates.BaseURL, cfg.ExchangeRates.APIKey, cfg.Pricing.BaseCurrency, repos.ExchangeRate, appLog)
		return refresher.Refresh(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setup loads configuration and wires shared dependencies
func setup(ctx context.Context) error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return err
	}

	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.FootballData.TimeoutSeconds) * time.Second
	httpCfg.RateLimit = cfg.FootballData.RateLimit
	httpClient := datasource.NewRateLimitedHTTPClient(httpCfg, appLog)
	source = datasource.NewFootballDataClient(httpClient, cfg.FootballData.BaseURL, cfg.FootballData.APIKey, appLog)

	return nil
}

// runGenerate builds the pipeline and runs one generation pass
func runGenerate(ctx context.Context) error {
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

	if dryRun {
		return runDryGenerate(ctx, predCfg, analyzer, estimator)
	}

	result, err := generator.GenerateAndPersist(ctx)
	if err != nil {
		return err
	}

	printPrediction("VIP", result.VIP.TotalOdds, result.VIP.SuccessProbability, len(result.VIP.Matches))
	printPrediction("Free", result.Free.TotalOdds, result.Free.SuccessProbability, len(result.Free.Matches))
	if result.UsedDemoData {
		fmt.Println("(demo data: no live matches were available)")
	}
	return nil
}

// runDryGenerate runs the pipeline up to the ranked combinations and prints
// them without touching the database
func runDryGenerate(ctx context.Context, predCfg prediction.Config, analyzer *prediction.Analyzer, estimator *prediction.Estimator) error {
	candidates, err := source.FetchUpcoming(ctx, predCfg.LookaheadDays)
	if err != nil {
		return fmt.Errorf("failed to fetch matches: %w", err)
	}
	if len(candidates) > predCfg.MaxMatches {
		candidates = candidates[:predCfg.MaxMatches]
	}
	fmt.Printf("Fetched %d upcoming matches\n", len(candidates))

	var analyzed []prediction.AnalyzedMatch
	for _, candidate := range candidates {
		predictions, err := analyzer.Analyze(ctx, candidate)
		if err != nil {
			continue
		}
		best := analyzer.SelectBestBet(predictions, predCfg.MinProbability)
		if best == nil {
			continue
		}
		odds := estimator.Estimate(best.Threshold, best.Probability)
		if odds < predCfg.MinLegOdds {
			continue
		}
		analyzed = append(analyzed, prediction.AnalyzedMatch{
			HomeTeam:    candidate.HomeTeam,
			AwayTeam:    candidate.AwayTeam,
			League:      candidate.Competition,
			KickoffTime: candidate.KickoffTime,
			BetLabel:    best.BetLabel,
			Odds:        odds,
			Probability: best.Probability,
		})
		fmt.Printf("  %s vs %s: %s @ %.2f (p=%.2f)\n",
			candidate.HomeTeam, candidate.AwayTeam, best.BetLabel, odds, best.Probability)
	}

	combos := prediction.Search(analyzed, predCfg)
	prediction.Rank(combos)
	fmt.Printf("Found %d valid combinations\n", len(combos))

	for i, combo := range combos {
		if i >= 5 {
			break
		}
		fmt.Printf("  #%d: %d matches, odds %.2f, probability %.1f%%\n",
			i+1, len(combo.Matches), combo.TotalOdds, combo.SuccessProbability*100)
	}
	return nil
}

func printPrediction(label string, odds, probability float64, matches int) {
	fmt.Printf("%s: %d matches, %.2f odds, %.1f%% probability\n", label, matches, odds, probability*100)
}

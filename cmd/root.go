package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/config"
	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/evaluate"
	"github.com/pable/go-tennis-mc/internal/metrics"
	"github.com/pable/go-tennis-mc/internal/player"
	"github.com/pable/go-tennis-mc/internal/storage"
)

var (
	cfg    *config.Config
	logger zerolog.Logger

	configPath string
	flagValues = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "tennismc",
	Short: "Tennis match outcome predictor",
	Long: `Learn per-player serve and return chains from point-by-point records and
estimate match win probabilities by Monte Carlo simulation.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (default $TENNISMC_CONFIG)")
	pf.StringVar(&flagValues.DBPath, "db", flagValues.DBPath, "path to SQLite database")
	pf.StringVar(&flagValues.LogLevel, "log-level", flagValues.LogLevel, "trace, debug, info, warn or error")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dropCmd)
}

// addEstimatorFlags registers the simulation settings on commands that run
// the estimator.
func addEstimatorFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&flagValues.Format, "format", flagValues.Format, "match format: tour (best of 3) or slam (best of 5)")
	f.Float64Var(&flagValues.Confidence, "confidence", flagValues.Confidence, "confidence level of the stopping interval")
	f.Float64Var(&flagValues.MaxHalfWidth, "max-half-width", flagValues.MaxHalfWidth, "stop once the interval half-width is at most this")
	f.IntVar(&flagValues.MinTrials, "min-trials", flagValues.MinTrials, "trials to run before the stopping rule applies")
	f.IntVar(&flagValues.MaxTrials, "max-trials", flagValues.MaxTrials, "give up after this many trials")
	f.IntVar(&flagValues.Workers, "workers", flagValues.Workers, "parallel simulation workers")
	f.Uint64Var(&flagValues.Seed, "seed", flagValues.Seed, "random seed (0 seeds from the clock)")
}

// setup loads the config, applies explicitly set flags on top and builds the
// logger.
func setup(c *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	f := c.Flags()
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"db", func() { loaded.DBPath = flagValues.DBPath }},
		{"log-level", func() { loaded.LogLevel = flagValues.LogLevel }},
		{"format", func() { loaded.Format = flagValues.Format }},
		{"confidence", func() { loaded.Confidence = flagValues.Confidence }},
		{"max-half-width", func() { loaded.MaxHalfWidth = flagValues.MaxHalfWidth }},
		{"min-trials", func() { loaded.MinTrials = flagValues.MinTrials }},
		{"max-trials", func() { loaded.MaxTrials = flagValues.MaxTrials }},
		{"workers", func() { loaded.Workers = flagValues.Workers }},
		{"seed", func() { loaded.Seed = flagValues.Seed }},
		{"max-evals", func() { loaded.MaxEvals = flagValues.MaxEvals }},
		{"addr", func() { loaded.Addr = flagValues.Addr }},
	}
	for _, o := range overrides {
		if f.Lookup(o.flag) != nil && f.Changed(o.flag) {
			o.apply()
		}
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	lvl, _ := loaded.Level()
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
	cfg = loaded
	return nil
}

func openDB() (*storage.DB, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// storedPlayers loads models from the database on demand.
type storedPlayers struct {
	db *storage.DB
}

func (s storedPlayers) Get(name string) (*player.Model, error) {
	return s.db.LoadPlayer(name, logger)
}

// newEvaluator builds an evaluator from the loaded config.
func newEvaluator(players evaluate.Players, collector metrics.Collector) (*evaluate.Evaluator, error) {
	format, err := cfg.MatchFormat()
	if err != nil {
		return nil, err
	}
	opts := []evaluate.Option{
		evaluate.WithMaxEvals(cfg.MaxEvals),
		evaluate.WithLogger(logger),
		evaluate.WithCollector(collector),
		evaluate.WithEstimatorOptions(
			estimate.WithConfidence(cfg.Confidence),
			estimate.WithMaxHalfWidth(cfg.MaxHalfWidth),
			estimate.WithMinTrials(cfg.MinTrials),
			estimate.WithMaxTrials(cfg.MaxTrials),
			estimate.WithWorkers(cfg.Workers),
		),
	}
	if cfg.Seed != 0 {
		opts = append(opts, evaluate.WithSeed(cfg.Seed))
	}
	return evaluate.New(players, format, opts...)
}

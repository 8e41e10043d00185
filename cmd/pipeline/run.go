package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/pipeline"
	"go-survey-pipeline/internal/store"
)

var (
	runInput     string
	runSamplePct float64
	runSeed      int64
	runSkipCache bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline over an input path",
	Long:  "Load survey CSVs (or zip archives) from the input path, sample, validate, transform, enrich and build the SQLite cache.",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "path to a CSV file, zip archive, or directory of them (required)")
	runCmd.Flags().Float64Var(&runSamplePct, "sample-pct", config.DefaultSamplePct*100, "sample percentage per role stratum")
	runCmd.Flags().Int64Var(&runSeed, "seed", config.DefaultSeed, "random seed for deterministic sampling")
	runCmd.Flags().BoolVar(&runSkipCache, "skip-cache", false, "stop after enrichment without writing the cache")
	runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.InputPath = runInput
	cfg.SamplePct = runSamplePct / 100.0
	cfg.Seed = runSeed
	cfg.SkipCache = runSkipCache

	if cfg.SamplePct <= 0 || cfg.SamplePct > 1 {
		return fmt.Errorf("--sample-pct must be in (0, 100], got %v", runSamplePct)
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := store.InitDB(cfg.TrackingDBPath()); err != nil {
		return fmt.Errorf("failed to open tracking store: %w", err)
	}
	defer store.Close()

	// Ctrl-C aborts between stages; the manifest keeps the last
	// completed stage.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID := uuid.New().String()
	if err := store.SaveRun(jobID, cfg.InputPath); err != nil {
		return fmt.Errorf("failed to register run: %w", err)
	}

	manifest, err := pipeline.Run(ctx, jobID, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun manifest: run_%s.json (state: %s)\n", manifest.RunID, manifest.State)
	return nil
}

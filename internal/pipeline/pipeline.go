package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-survey-pipeline/internal/cache"
	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
	"go-survey-pipeline/internal/stage"
	"go-survey-pipeline/internal/store"
)

// ------------------- Pipeline Runner -------------------

// Run executes the full batch pipeline: load → sample → validate →
// transform → enrich → cache. Stages run strictly in sequence; each
// stage's output is materialized and persisted before the next begins.
// Any stage failure halts the run at that state and writes a partial
// manifest naming the failed stage; the previously cached dataset is
// left untouched.
func Run(ctx context.Context, jobID string, cfg *config.Config) (manifest *model.RunManifest, err error) {
	start := time.Now()
	runID := start.UTC().Format("20060102_150405")
	fmt.Printf("🚀 Starting pipeline run %s (job %s)\n", runID, jobID)

	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	stages := stage.NewStore(cfg.StageDir())
	manifest = &model.RunManifest{
		RunID:     runID,
		StartedAt: start.UTC(),
		InputPath: cfg.InputPath,
		SamplePct: cfg.SamplePct * 100,
		Seed:      cfg.Seed,
		Stages:    make(map[string]*model.StageStats),
	}

	store.UpdateRunStatus(jobID, "running")

	// On any failure, persist what we have: a partial manifest marking
	// the failed stage is worth more than nothing when debugging a run.
	defer func() {
		manifest.FinishedAt = time.Now().UTC()
		if err != nil {
			manifest.Error = err.Error()
			store.UpdateRunStatus(jobID, "failed")
			store.SaveRunError(jobID, err)
		}
		if serr := stages.SaveManifest(manifest); serr != nil {
			fmt.Printf("⚠️ Failed to save run manifest: %v\n", serr)
		}
		store.SaveRunManifest(jobID, manifest)
	}()

	fail := func(stageName string, stageErr error) (*model.RunManifest, error) {
		manifest.FailedStage = stageName
		fmt.Printf("❌ Stage %s failed: %v\n", stageName, stageErr)
		return manifest, stageErr
	}

	// --- LOAD ---
	fmt.Println("\n[1/6] 📄 Loading data...")
	store.UpdateRunStatus(jobID, "loading")
	loadStart := time.Now()

	extractDir, err := os.MkdirTemp("", "survey-extract-")
	if err != nil {
		return fail("load", err)
	}
	defer os.RemoveAll(extractDir)

	files, err := DiscoverFiles(cfg.InputPath, extractDir)
	if err != nil {
		return fail("load", err)
	}
	if len(files) == 0 {
		return fail("load", fmt.Errorf("no CSV files found in %s (looked for .csv and .zip)", cfg.InputPath))
	}
	fmt.Printf("  Found %d CSV file(s)\n", len(files))

	table, loadStats, err := LoadTable(files, cfg)
	if err != nil {
		return fail("load", err)
	}
	manifest.Stages["load"] = loadStats
	manifest.State = model.StateLoaded
	store.SaveStageProgress(jobID, "load", loadStats.RowsOut, loadStats.RowsOut, loadStart)
	fmt.Printf("  Total: %d rows, %d columns\n", table.Len(), len(table.Columns))

	if err := checkCancelled(ctx, manifest); err != nil {
		return manifest, err
	}

	// --- SAMPLE ---
	fmt.Printf("\n[2/6] 🎲 Stratified sampling (%.1f%% by role)...\n", cfg.SamplePct*100)
	store.UpdateRunStatus(jobID, "sampling")
	sampleStart := time.Now()

	sampled, sampleStats, err := StratifiedSample(table, cfg)
	if err != nil {
		return fail("sample", err)
	}
	if err := stages.SaveOutput("01_sample", sampled, sampleStats); err != nil {
		return fail("sample", err)
	}
	manifest.Stages["sample"] = sampleStats
	manifest.State = model.StateSampled
	store.SaveStageProgress(jobID, "sample", sampleStats.RowsIn, sampleStats.RowsOut, sampleStart)
	fmt.Printf("  %d → %d rows (%.1f%% reduction)\n", sampleStats.RowsIn, sampleStats.RowsOut, sampleStats.ReductionPct)

	if err := checkCancelled(ctx, manifest); err != nil {
		return manifest, err
	}

	// --- VALIDATE ---
	fmt.Println("\n[3/6] 🔍 Validating data...")
	store.UpdateRunStatus(jobID, "validating")
	validateStart := time.Now()

	clean, quarantined, validateStats, err := ValidateTable(sampled, cfg)
	if err != nil {
		return fail("validate", err)
	}
	if err := stages.SaveOutput("02_validate", clean, validateStats); err != nil {
		return fail("validate", err)
	}
	if err := stages.SaveAux("02_validate", "quarantine.csv", quarantined); err != nil {
		return fail("validate", err)
	}
	manifest.Stages["validate"] = validateStats
	manifest.State = model.StateValidated
	store.SaveStageProgress(jobID, "validate", validateStats.RowsIn, validateStats.RowsOut, validateStart)
	fmt.Printf("  Valid: %d, Quarantined: %d\n", validateStats.RowsValid, validateStats.RowsQuarantined)

	if err := checkCancelled(ctx, manifest); err != nil {
		return manifest, err
	}

	// --- TRANSFORM ---
	fmt.Println("\n[4/6] 🔄 Transforming data...")
	store.UpdateRunStatus(jobID, "transforming")
	transformStart := time.Now()

	transformed, transformStats := TransformTable(clean, cfg)
	if err := stages.SaveOutput("03_transform", transformed, transformStats); err != nil {
		return fail("transform", err)
	}
	manifest.Stages["transform"] = transformStats
	manifest.State = model.StateTransformed
	store.SaveStageProgress(jobID, "transform", transformStats.RowsIn, transformStats.RowsOut, transformStart)
	fmt.Printf("  Transforms: %d\n", len(transformStats.TransformsApplied))

	if err := checkCancelled(ctx, manifest); err != nil {
		return manifest, err
	}

	// --- ENRICH ---
	fmt.Println("\n[5/6] ✨ Enriching data...")
	store.UpdateRunStatus(jobID, "enriching")
	enrichStart := time.Now()

	enriched, enrichStats := EnrichTable(transformed, cfg, runID)
	if err := stages.SaveOutput("04_enrich", enriched, enrichStats); err != nil {
		return fail("enrich", err)
	}
	manifest.Stages["enrich"] = enrichStats
	manifest.State = model.StateEnriched
	store.SaveStageProgress(jobID, "enrich", enrichStats.RowsIn, enrichStats.RowsOut, enrichStart)
	fmt.Printf("  Fields added: %v\n", enrichStats.FieldsAdded)

	// --- CACHE ---
	if cfg.SkipCache {
		// Dry-run mode: halting at enriched is a success, not a failure.
		fmt.Println("\n[6/6] 💾 Skipping cache build (--skip-cache)")
		manifest.OK = true
		store.UpdateRunStatus(jobID, "completed")
		fmt.Printf("\n🏁 Pipeline completed: %s in %v (cache skipped)\n", runID, time.Since(start))
		return manifest, nil
	}

	if err := checkCancelled(ctx, manifest); err != nil {
		return manifest, err
	}

	fmt.Println("\n[6/6] 💾 Building SQLite cache...")
	store.UpdateRunStatus(jobID, "caching")
	cacheStart := time.Now()

	c := cache.New(cfg.CachePath(), cfg.YearColumn)
	source := fmt.Sprintf("%.1f%% stratified sample", cfg.SamplePct*100)
	result, err := c.Build(enriched, source)
	if err != nil {
		manifest.Cache = &model.CacheResult{OK: false, Error: err.Error()}
		return fail("cache", err)
	}
	manifest.Cache = result
	manifest.State = model.StateCached
	store.SaveStageProgress(jobID, "cache", enriched.Len(), result.Rows, cacheStart)
	fmt.Printf("  Cache: %d rows, %s\n", result.Rows, result.Path)

	manifest.State = model.StateDone
	manifest.OK = true
	store.UpdateRunStatus(jobID, "completed")
	fmt.Printf("\n🏁 Pipeline completed: %s in %v\n", runID, time.Since(start))
	return manifest, nil
}

// checkCancelled records an aborted run: the manifest keeps the last
// completed stage, FailedStage stays empty (no stage broke) and no cache
// write happens.
func checkCancelled(ctx context.Context, manifest *model.RunManifest) error {
	if err := ctx.Err(); err != nil {
		fmt.Printf("🛑 Run aborted after state %q\n", manifest.State)
		return fmt.Errorf("run aborted after state %q: %w", manifest.State, err)
	}
	return nil
}

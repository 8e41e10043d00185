package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"go-survey-pipeline/internal/cache"
	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/pipeline"
	"go-survey-pipeline/internal/store"
	"go-survey-pipeline/pkg/utils"
)

var (
	baseCfg  = config.Default()
	validate = validator.New()
)

// Configure sets the base configuration used for API-triggered runs.
func Configure(cfg *config.Config) {
	baseCfg = cfg
}

// RunRequest is the payload for POST /runs. SamplePct is a percentage
// (5 means 5%), matching the CLI flag.
type RunRequest struct {
	InputPath string  `json:"input_path" validate:"required"`
	SamplePct float64 `json:"sample_pct,omitempty" validate:"omitempty,gt=0,lte=100"`
	Seed      int64   `json:"seed,omitempty"`
	SkipCache bool    `json:"skip_cache,omitempty"`
}

// CreateRun triggers a new pipeline run
// @Summary Trigger a pipeline run
// @Description Start a pipeline run asynchronously over the given input path
// @Tags runs
// @Accept json
// @Produce json
// @Param run body RunRequest true "Run configuration"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Invalid run request: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := *baseCfg
	cfg.InputPath = req.InputPath
	if req.SamplePct > 0 {
		cfg.SamplePct = req.SamplePct / 100.0
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	cfg.SkipCache = req.SkipCache

	jobID := uuid.New().String()
	if err := store.SaveRun(jobID, cfg.InputPath); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	timeout := utils.ParseDuration(os.Getenv("PIPELINE_RUN_TIMEOUT"))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	go func() {
		defer cancel()
		if _, err := pipeline.Run(ctx, jobID, &cfg); err != nil {
			store.SaveRunError(jobID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Pipeline run started",
		"jobID":     jobID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	})
}

// ListRuns lists all pipeline runs
// @Summary List runs
// @Description Get all pipeline runs with their current status
// @Tags runs
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves one run
// @Summary Get run
// @Description Retrieve status and timestamps for one pipeline run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	jobID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	run, err := store.GetRun(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunManifest retrieves a run's manifest
// @Summary Get run manifest
// @Description Retrieve the per-stage statistics and outcome for one run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunManifest "Run manifest"
// @Failure 404 {object} map[string]interface{} "Run or manifest not found"
// @Router /runs/{id}/manifest [get]
func GetRunManifest(w http.ResponseWriter, r *http.Request) {
	jobID, ok := runIDFromPath(w, r, "/manifest")
	if !ok {
		return
	}

	manifest, err := store.GetRunManifest(jobID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if manifest == nil {
		http.Error(w, "Run has no manifest yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(manifest)
}

// GetRunProgress retrieves per-stage progress for a run
// @Summary Get run progress
// @Description Retrieve per-stage row counts and timing for one run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Stage progress"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/progress [get]
func GetRunProgress(w http.ResponseWriter, r *http.Request) {
	jobID, ok := runIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetStageProgress(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":   jobID,
		"progress": progress,
		"count":    len(progress),
	})
}

// GetRunErrors retrieves errors recorded for a run
// @Summary Get run errors
// @Description Retrieve all errors recorded during one run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := runIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	runErrors, err := store.GetRunErrors(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"errors": runErrors,
		"count":  len(runErrors),
	})
}

// GetCacheStats describes the current survey cache
// @Summary Get cache stats
// @Description Row count, size and metadata of the persisted survey cache
// @Tags cache
// @Produce json
// @Success 200 {object} model.CacheStats "Cache statistics"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/stats [get]
func GetCacheStats(w http.ResponseWriter, r *http.Request) {
	c := cache.New(baseCfg.CachePath(), baseCfg.YearColumn)
	stats, err := c.Stats()
	if err != nil {
		http.Error(w, "Failed to read cache stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// runIDFromPath extracts the run ID between the /runs/ prefix and the
// given suffix. Writes a 400 and returns false when the path is malformed.
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	prefix := "/api/v1/runs/"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	jobID := path[len(prefix) : len(path)-len(suffix)]
	if jobID == "" || strings.Contains(jobID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return jobID, true
}

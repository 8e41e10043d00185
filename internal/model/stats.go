package model

import "time"

// StratumCount records group sizes before and after sampling.
type StratumCount struct {
	Original int `json:"original"`
	Sampled  int `json:"sampled"`
}

// StageStats is the per-stage statistics record written next to each
// stage's output. Only the fields relevant to a stage are populated.
type StageStats struct {
	Stage               string                  `json:"stage"`
	RowsIn              int                     `json:"rows_in"`
	RowsOut             int                     `json:"rows_out"`
	SamplePct           float64                 `json:"sample_pct,omitempty"`
	ReductionPct        float64                 `json:"reduction_pct,omitempty"`
	StrataCounts        map[string]StratumCount `json:"strata_counts,omitempty"`
	RowsValid           int                     `json:"rows_valid,omitempty"`
	RowsQuarantined     int                     `json:"rows_quarantined,omitempty"`
	DuplicatesRemoved   int                     `json:"duplicates_removed,omitempty"`
	DuplicateIDsRemoved int                     `json:"duplicate_ids_removed,omitempty"`
	TransformsApplied   []string                `json:"transforms_applied,omitempty"`
	FieldsAdded         []string                `json:"fields_added,omitempty"`
	Issues              []string                `json:"issues,omitempty"`
	Files               int                     `json:"files,omitempty"`
}

// RunState is the orchestrator's position in the linear state machine.
type RunState string

const (
	StateLoaded      RunState = "loaded"
	StateSampled     RunState = "sampled"
	StateValidated   RunState = "validated"
	StateTransformed RunState = "transformed"
	StateEnriched    RunState = "enriched"
	StateCached      RunState = "cached"
	StateDone        RunState = "done"
)

// CacheResult is the outcome of a cache build.
type CacheResult struct {
	OK    bool   `json:"ok"`
	Rows  int    `json:"rows,omitempty"`
	Path  string `json:"path,omitempty"`
	Years string `json:"years,omitempty"`
	Error string `json:"error,omitempty"`
}

// RunManifest is the per-execution record of stage statistics and outcome.
// It is written once at the end of a run (or at the failing stage) and
// never updated afterwards.
type RunManifest struct {
	RunID       string                 `json:"run_id"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at,omitempty"`
	InputPath   string                 `json:"input_path"`
	SamplePct   float64                `json:"sample_pct"`
	Seed        int64                  `json:"seed"`
	State       RunState               `json:"state"`
	Stages      map[string]*StageStats `json:"stages"`
	Cache       *CacheResult           `json:"cache,omitempty"`
	FailedStage string                 `json:"failed_stage,omitempty"`
	Error       string                 `json:"error,omitempty"`
	OK          bool                   `json:"ok"`
}

// CacheMetadata mirrors the cache_meta key/value table.
type CacheMetadata struct {
	BuiltAt string `json:"built_at"`
	Source  string `json:"source"`
	Years   string `json:"years"`
}

// CacheStats describes the persisted cache for introspection.
type CacheStats struct {
	Exists    bool    `json:"exists"`
	Path      string  `json:"path,omitempty"`
	Rows      int     `json:"rows,omitempty"`
	SizeBytes int64   `json:"size_bytes,omitempty"`
	SizeMB    float64 `json:"size_mb,omitempty"`
	BuiltAt   string  `json:"built_at,omitempty"`
	Source    string  `json:"source,omitempty"`
	Years     string  `json:"years,omitempty"`
}

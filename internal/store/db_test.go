package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-survey-pipeline/internal/model"
)

func initTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "runs.db")))
	t.Cleanup(func() { Close() })
}

func TestNoOpsWithoutInit(t *testing.T) {
	require.NoError(t, Close())

	assert.NoError(t, SaveRun("j1", "/in"))
	assert.NoError(t, UpdateRunStatus("j1", "running"))
	assert.NoError(t, SaveRunError("j1", errors.New("boom")))
	assert.NoError(t, SaveStageProgress("j1", "load", 10, 10, time.Now()))
	assert.NoError(t, SaveRunManifest("j1", &model.RunManifest{RunID: "r1"}))

	runs, err := ListRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunLifecycle(t *testing.T) {
	initTestDB(t)

	require.NoError(t, SaveRun("job-1", "/data/input.csv"))
	require.NoError(t, UpdateRunStatus("job-1", "running"))
	require.NoError(t, UpdateRunStatus("job-1", "completed"))

	run, err := GetRun("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", run["id"])
	assert.Equal(t, "/data/input.csv", run["inputPath"])
	assert.Equal(t, "completed", run["status"])

	runs, err := ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "job-1", runs[0]["id"])
}

func TestGetRunNotFound(t *testing.T) {
	initTestDB(t)
	_, err := GetRun("nope")
	assert.Error(t, err)
}

func TestManifestRoundTrip(t *testing.T) {
	initTestDB(t)
	require.NoError(t, SaveRun("job-m", "/in"))

	// Not produced yet.
	m, err := GetRunManifest("job-m")
	require.NoError(t, err)
	assert.Nil(t, m)

	manifest := &model.RunManifest{
		RunID: "20240101_120000",
		State: model.StateDone,
		OK:    true,
		Stages: map[string]*model.StageStats{
			"sample": {Stage: "sample", RowsIn: 1000, RowsOut: 50},
		},
	}
	require.NoError(t, SaveRunManifest("job-m", manifest))

	m, err = GetRunManifest("job-m")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, manifest.RunID, m.RunID)
	assert.Equal(t, model.StateDone, m.State)
	require.Contains(t, m.Stages, "sample")
	assert.Equal(t, 50, m.Stages["sample"].RowsOut)
}

func TestRunErrors(t *testing.T) {
	initTestDB(t)
	require.NoError(t, SaveRun("job-e", "/in"))
	require.NoError(t, SaveRunError("job-e", errors.New("stage validate failed")))

	errs, err := GetRunErrors("job-e")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "stage validate failed", errs[0]["error"])
}

func TestStageProgressOrder(t *testing.T) {
	initTestDB(t)
	require.NoError(t, SaveRun("job-p", "/in"))

	start := time.Now().Add(-time.Minute)
	for _, s := range []struct {
		stage            string
		rowsIn, rowsOut  int
	}{
		{"load", 0, 1000},
		{"sample", 1000, 50},
		{"validate", 50, 48},
	} {
		require.NoError(t, SaveStageProgress("job-p", s.stage, s.rowsIn, s.rowsOut, start))
	}

	progress, err := GetStageProgress("job-p")
	require.NoError(t, err)
	require.Len(t, progress, 3)
	assert.Equal(t, "load", progress[0]["stage"])
	assert.Equal(t, "sample", progress[1]["stage"])
	assert.Equal(t, "validate", progress[2]["stage"])
	assert.Equal(t, 50, progress[1]["rowsOut"])
}

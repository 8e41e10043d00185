package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.DataDir = ""
	return cfg
}

func surveyTable(roleCounts map[string]int) *model.Table {
	t := model.NewTable([]string{"ResponseId", "Country", "DevType", "survey_year"})
	id := 0
	for _, role := range []string{"Developer, full-stack", "Developer, back-end", "Data scientist", "DevOps specialist", "Academic researcher"} {
		n, ok := roleCounts[role]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			id++
			t.Append(model.Row{
				"ResponseId":  fmt.Sprintf("%d", id),
				"Country":     "United States",
				"DevType":     role + ";Student",
				"survey_year": "2024",
			})
		}
	}
	return t
}

func TestPrimaryRole(t *testing.T) {
	assert.Equal(t, "Developer, full-stack", PrimaryRole("Developer, full-stack;Student"))
	assert.Equal(t, "Data scientist", PrimaryRole("  Data scientist  "))
	assert.Equal(t, "Unknown", PrimaryRole(""))
	assert.Equal(t, "Unknown", PrimaryRole("nan"))
	assert.Equal(t, "Unknown", PrimaryRole(";Student"))
}

func TestStratifiedSampleDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.SamplePct = 0.1
	table := surveyTable(map[string]int{"Developer, full-stack": 100, "Data scientist": 50})

	first, _, err := StratifiedSample(table, cfg)
	require.NoError(t, err)
	second, _, err := StratifiedSample(table, cfg)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := range first.Rows {
		assert.Equal(t, first.Rows[i]["ResponseId"], second.Rows[i]["ResponseId"])
	}
}

func TestStratifiedSampleMinPerStratum(t *testing.T) {
	cfg := testConfig()
	cfg.SamplePct = 0.01
	table := surveyTable(map[string]int{"Developer, full-stack": 10, "Data scientist": 1, "DevOps specialist": 3})

	sampled, stats, err := StratifiedSample(table, cfg)
	require.NoError(t, err)

	// Every non-empty stratum keeps at least one row, even when rounding
	// would give zero.
	assert.Len(t, stats.StrataCounts, 3)
	for role, count := range stats.StrataCounts {
		assert.GreaterOrEqual(t, count.Sampled, 1, "stratum %s", role)
	}
	assert.GreaterOrEqual(t, sampled.Len(), 3)
}

func TestStratifiedSampleMonotonicInFraction(t *testing.T) {
	cfg := testConfig()
	table := surveyTable(map[string]int{"Developer, full-stack": 200, "Data scientist": 80, "DevOps specialist": 40})

	prev := 0
	for _, pct := range []float64{0.05, 0.1, 0.25, 0.5, 1.0} {
		cfg.SamplePct = pct
		sampled, _, err := StratifiedSample(table, cfg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sampled.Len(), prev, "pct %v", pct)
		prev = sampled.Len()
	}
	// pct = 1 keeps everything.
	assert.Equal(t, table.Len(), prev)
}

func TestStratifiedSampleGroupSizes(t *testing.T) {
	counts := map[string]int{
		"Developer, full-stack": 15000,
		"Developer, back-end":   10000,
		"Data scientist":        5000,
		"DevOps specialist":     3000,
		"Academic researcher":   17000,
	}
	cfg := testConfig()
	cfg.SamplePct = 0.05
	table := surveyTable(counts)
	require.Equal(t, 50000, table.Len())

	sampled, stats, err := StratifiedSample(table, cfg)
	require.NoError(t, err)

	expected := map[string]int{
		"Developer, full-stack": 750,
		"Developer, back-end":   500,
		"Data scientist":        250,
		"DevOps specialist":     150,
		"Academic researcher":   850,
	}
	for role, want := range expected {
		assert.Equal(t, want, stats.StrataCounts[role].Sampled, "stratum %s", role)
	}
	assert.Equal(t, 2500, sampled.Len())
	assert.InDelta(t, 95.0, stats.ReductionPct, 0.1)
}

func TestStratifiedSampleUnknownStratum(t *testing.T) {
	cfg := testConfig()
	cfg.SamplePct = 0.5
	table := model.NewTable([]string{"ResponseId", "DevType"})
	table.Append(model.Row{"ResponseId": "1", "DevType": ""})
	table.Append(model.Row{"ResponseId": "2", "DevType": "Data scientist"})

	_, stats, err := StratifiedSample(table, cfg)
	require.NoError(t, err)
	assert.Contains(t, stats.StrataCounts, "Unknown")
	assert.Equal(t, 1, stats.StrataCounts["Unknown"].Sampled)
}

func TestStratifiedSampleErrors(t *testing.T) {
	cfg := testConfig()

	_, _, err := StratifiedSample(model.NewTable([]string{"DevType"}), cfg)
	var sampErr *SamplingError
	require.ErrorAs(t, err, &sampErr)

	cfg.SamplePct = 1.5
	_, _, err = StratifiedSample(surveyTable(map[string]int{"Data scientist": 5}), cfg)
	require.ErrorAs(t, err, &sampErr)

	cfg.SamplePct = 0
	_, _, err = StratifiedSample(surveyTable(map[string]int{"Data scientist": 5}), cfg)
	require.ErrorAs(t, err, &sampErr)
}

func TestStratifiedSampleDoesNotMutateInput(t *testing.T) {
	cfg := testConfig()
	cfg.SamplePct = 1.0
	table := surveyTable(map[string]int{"Data scientist": 4})

	sampled, _, err := StratifiedSample(table, cfg)
	require.NoError(t, err)

	sampled.Rows[0]["Country"] = "Mutated"
	assert.Equal(t, "United States", table.Rows[0]["Country"])
}

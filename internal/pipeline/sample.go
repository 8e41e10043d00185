package pipeline

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
	"go-survey-pipeline/pkg/utils"
)

// unknownStratum groups rows whose role field is empty or missing.
const unknownStratum = "Unknown"

// PrimaryRole extracts the group key: the first token of the
// semicolon-delimited role field, trimmed, case preserved.
func PrimaryRole(roleVal string) string {
	if model.IsMissing(roleVal) {
		return unknownStratum
	}
	first := strings.TrimSpace(strings.SplitN(roleVal, ";", 2)[0])
	if first == "" {
		return unknownStratum
	}
	return first
}

// StratifiedSample partitions the table by primary role and draws
// max(minPerStratum, round(n*pct)) rows from each stratum uniformly
// without replacement. The same seed over the same input ordering always
// reproduces the same sample: strata are visited in first-appearance order
// and the random source is consumed in that order.
func StratifiedSample(t *model.Table, cfg *config.Config) (*model.Table, *model.StageStats, error) {
	if cfg.SamplePct <= 0 || cfg.SamplePct > 1 {
		return nil, nil, &SamplingError{Reason: "sample fraction must be in (0, 1]"}
	}
	if t == nil || t.Len() == 0 {
		return nil, nil, &SamplingError{Reason: "input table is empty"}
	}

	stats := &model.StageStats{
		Stage:        "sample",
		RowsIn:       t.Len(),
		SamplePct:    cfg.SamplePct * 100,
		StrataCounts: make(map[string]model.StratumCount),
	}

	// Partition by group key, keeping first-appearance order.
	var order []string
	strata := make(map[string][]int)
	for i, row := range t.Rows {
		role := PrimaryRole(row.Get(cfg.RoleColumn))
		if _, seen := strata[role]; !seen {
			order = append(order, role)
		}
		strata[role] = append(strata[role], i)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	out := model.NewTable(t.Columns)

	for _, role := range order {
		idx := strata[role]
		n := len(idx)
		k := int(math.Round(float64(n) * cfg.SamplePct))
		if k < cfg.MinPerStratum {
			k = cfg.MinPerStratum
		}
		if k > n {
			k = n
		}

		chosen := idx
		if k < n {
			perm := rng.Perm(n)[:k]
			sort.Ints(perm)
			chosen = make([]int, k)
			for i, p := range perm {
				chosen[i] = idx[p]
			}
		}

		for _, i := range chosen {
			out.Append(t.Rows[i].Clone())
		}
		stats.StrataCounts[role] = model.StratumCount{Original: n, Sampled: len(chosen)}
	}

	stats.RowsOut = out.Len()
	stats.ReductionPct = utils.RoundPct((1 - float64(out.Len())/float64(t.Len())) * 100)
	return out, stats, nil
}

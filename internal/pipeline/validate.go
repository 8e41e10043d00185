package pipeline

import (
	"fmt"
	"strings"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
)

// ValidateTable dedupes and quarantines a sampled table. In order: exact
// full-row duplicates are dropped, then rows sharing an identifier (first
// occurrence wins), then any remaining row with more than the configured
// fraction of nulls across the key columns is moved to quarantine. The
// clean and quarantined outputs are disjoint and together cover every
// post-dedup row.
func ValidateTable(t *model.Table, cfg *config.Config) (*model.Table, *model.Table, *model.StageStats, error) {
	for _, col := range cfg.KeyColumns {
		if !t.HasColumn(col) {
			return nil, nil, nil, &SchemaError{Column: col}
		}
	}

	stats := &model.StageStats{Stage: "validate", RowsIn: t.Len()}

	for _, col := range cfg.RequiredColumns {
		if !t.HasColumn(col) {
			stats.Issues = append(stats.Issues, fmt.Sprintf("missing column: %s", col))
		}
	}

	// Exact duplicate rows.
	seen := make(map[string]bool, t.Len())
	deduped := model.NewTable(t.Columns)
	for _, row := range t.Rows {
		sig := rowSignature(row, t.Columns)
		if seen[sig] {
			stats.DuplicatesRemoved++
			continue
		}
		seen[sig] = true
		deduped.Append(row)
	}
	if stats.DuplicatesRemoved > 0 {
		stats.Issues = append(stats.Issues, fmt.Sprintf("removed %d duplicate rows", stats.DuplicatesRemoved))
	}

	// Duplicate identifiers, keeping the first occurrence. Rows with a
	// missing identifier cannot share one, so they all pass through here
	// and fall to the null check below.
	seenIDs := make(map[string]bool, deduped.Len())
	idDeduped := model.NewTable(t.Columns)
	for _, row := range deduped.Rows {
		id := row.Get(cfg.IDColumn)
		if !model.IsMissing(id) {
			if seenIDs[id] {
				stats.DuplicateIDsRemoved++
				continue
			}
			seenIDs[id] = true
		}
		idDeduped.Append(row)
	}
	if stats.DuplicateIDsRemoved > 0 {
		stats.Issues = append(stats.Issues, fmt.Sprintf("removed %d duplicate %ss", stats.DuplicateIDsRemoved, cfg.IDColumn))
	}

	clean := model.NewTable(t.Columns)
	quarantined := model.NewTable(t.Columns)
	for _, row := range idDeduped.Rows {
		nulls := 0
		for _, col := range cfg.KeyColumns {
			if model.IsMissing(row.Get(col)) {
				nulls++
			}
		}
		frac := float64(nulls) / float64(len(cfg.KeyColumns))
		if frac > cfg.QuarantineNullThreshold {
			quarantined.Append(row.Clone())
		} else {
			clean.Append(row.Clone())
		}
	}

	stats.RowsValid = clean.Len()
	stats.RowsQuarantined = quarantined.Len()
	stats.RowsOut = clean.Len()
	return clean, quarantined, stats, nil
}

// rowSignature joins the row's values in column order with an unlikely
// separator, so exact duplicates collide.
func rowSignature(row model.Row, columns []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = row.Get(col)
	}
	return strings.Join(parts, "\x1f")
}

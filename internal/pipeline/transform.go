package pipeline

import (
	"strings"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
	"go-survey-pipeline/pkg/utils"
)

// countryAliases maps common abbreviations to canonical country names.
// Unmapped values pass through unchanged.
var countryAliases = map[string]string{
	"USA":                      "United States",
	"United States of America": "United States",
	"UK":                       "United Kingdom",
	"Great Britain":            "United Kingdom",
}

// TransformTable normalizes types, formats and value ranges. Row count and
// identity never change; malformed values degrade to the null marker
// rather than failing the stage. Applying the transform twice yields the
// same table as applying it once.
func TransformTable(t *model.Table, cfg *config.Config) (*model.Table, *model.StageStats) {
	stats := &model.StageStats{Stage: "transform", RowsIn: t.Len()}
	applied := make(map[string]int)

	out := model.NewTable(t.Columns)
	for _, src := range t.Rows {
		row := src.Clone()

		// Strip whitespace and upstream null sentinels from every value.
		for _, col := range t.Columns {
			v := row.Get(col)
			cleaned := strings.TrimSpace(v)
			if cleaned == "nan" || cleaned == "None" {
				cleaned = model.Null
			}
			if cleaned != v {
				row[col] = cleaned
				applied["stripped whitespace"]++
			}
		}

		if t.HasColumn(cfg.YearColumn) {
			if y, changed := utils.NormalizeYear(row.Get(cfg.YearColumn)); changed {
				row[cfg.YearColumn] = y
				applied["normalized "+cfg.YearColumn]++
			}
		}

		if t.HasColumn(cfg.CountryColumn) {
			if full, ok := countryAliases[row.Get(cfg.CountryColumn)]; ok {
				row[cfg.CountryColumn] = full
				applied["normalized "+cfg.CountryColumn]++
			}
		}

		for _, col := range cfg.CompensationColumns {
			if !t.HasColumn(col) {
				continue
			}
			if v, changed := cleanCompensation(row.Get(col), cfg.CompCeiling); changed {
				row[col] = v
				applied["cleaned "+col]++
			}
		}

		if t.HasColumn(cfg.ExperienceColumn) {
			if v, changed := normalizeExperience(row.Get(cfg.ExperienceColumn)); changed {
				row[cfg.ExperienceColumn] = v
				applied["converted "+cfg.ExperienceColumn+" to numeric"]++
			}
		}

		out.Append(row)
	}

	// Report only the rules that actually fired.
	for _, rule := range transformRuleOrder(cfg) {
		if applied[rule] > 0 {
			stats.TransformsApplied = append(stats.TransformsApplied, rule)
		}
	}

	stats.RowsOut = out.Len()
	return out, stats
}

func transformRuleOrder(cfg *config.Config) []string {
	rules := []string{
		"stripped whitespace",
		"normalized " + cfg.YearColumn,
		"normalized " + cfg.CountryColumn,
	}
	for _, col := range cfg.CompensationColumns {
		rules = append(rules, "cleaned "+col)
	}
	return append(rules, "converted "+cfg.ExperienceColumn+" to numeric")
}

// cleanCompensation parses a compensation value and nulls anything
// negative, above the ceiling, or unparsable. Values are never clamped;
// a clamped figure would look plausible while being wrong.
func cleanCompensation(v string, ceiling float64) (string, bool) {
	if model.IsMissing(v) {
		return model.Null, v != model.Null
	}
	f, ok := utils.ParseNumeric(v)
	if !ok || f < 0 || f > ceiling {
		return model.Null, true
	}
	formatted := utils.FormatNumeric(f)
	return formatted, formatted != v
}

// normalizeExperience coerces free-text experience values to a numeric
// string, or the null marker when no numeric token exists.
func normalizeExperience(v string) (string, bool) {
	if model.IsMissing(v) {
		return model.Null, v != model.Null
	}
	f, ok := utils.ParseNumeric(v)
	if !ok {
		return model.Null, true
	}
	formatted := utils.FormatNumeric(f)
	return formatted, formatted != v
}

package pipeline

import (
	"time"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
	"go-survey-pipeline/pkg/utils"
)

// Sentinels for derived columns whose source value is missing or unmapped.
const (
	regionOther   = "Other"
	bucketUnknown = "Unknown"
)

// regionMap buckets normalized country names into coarse regions.
var regionMap = map[string]string{
	"United States":  "North America",
	"Canada":         "North America",
	"Mexico":         "North America",
	"United Kingdom": "Europe",
	"Germany":        "Europe",
	"France":         "Europe",
	"Netherlands":    "Europe",
	"Spain":          "Europe",
	"Italy":          "Europe",
	"Poland":         "Europe",
	"Sweden":         "Europe",
	"India":          "Asia",
	"China":          "Asia",
	"Japan":          "Asia",
	"Singapore":      "Asia",
	"Australia":      "Oceania",
	"New Zealand":    "Oceania",
	"Brazil":         "South America",
	"Argentina":      "South America",
	"South Africa":   "Africa",
	"Nigeria":        "Africa",
}

// EnrichTable appends derived columns to the transformed table without
// touching existing ones. A missing source column degrades to sentinel
// values for the dependent derived column; enrichment itself never fails
// over a schema-conformant table.
func EnrichTable(t *model.Table, cfg *config.Config, runID string) (*model.Table, *model.StageStats) {
	stats := &model.StageStats{Stage: "enrich", RowsIn: t.Len()}
	enrichedAt := time.Now().UTC().Format(time.RFC3339)
	source := "pipeline-" + runID

	out := model.NewTable(t.Columns)
	derived := []string{"year_label", "region_group", "experience_bucket", "comp_tier", "_source", "_enriched_at"}
	for _, col := range derived {
		out.AddColumn(col)
	}

	for _, src := range t.Rows {
		row := src.Clone()

		year, _ := utils.NormalizeYear(row.Get(cfg.YearColumn))
		row["year_label"] = year

		region := regionOther
		if r, ok := regionMap[row.Get(cfg.CountryColumn)]; ok {
			region = r
		}
		row["region_group"] = region

		row["experience_bucket"] = experienceBucket(row.Get(cfg.ExperienceColumn))
		row["comp_tier"] = compTier(row.Get(cfg.CompYearlyColumn))
		row["_source"] = source
		row["_enriched_at"] = enrichedAt

		out.Append(row)
	}

	stats.FieldsAdded = derived
	stats.RowsOut = out.Len()
	return out, stats
}

// experienceBucket maps years of experience into fixed ranges.
func experienceBucket(v string) string {
	f, ok := utils.ParseNumeric(v)
	if model.IsMissing(v) || !ok {
		return bucketUnknown
	}
	switch {
	case f <= 2:
		return "0-2 years"
	case f <= 5:
		return "3-5 years"
	case f <= 10:
		return "6-10 years"
	case f <= 20:
		return "11-20 years"
	default:
		return "20+ years"
	}
}

// compTier maps yearly compensation into fixed brackets.
func compTier(v string) string {
	f, ok := utils.ParseNumeric(v)
	if model.IsMissing(v) || !ok {
		return bucketUnknown
	}
	switch {
	case f <= 50_000:
		return "<50k"
	case f <= 100_000:
		return "50-100k"
	case f <= 150_000:
		return "100-150k"
	case f <= 200_000:
		return "150-200k"
	default:
		return "200k+"
	}
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-survey-pipeline/internal/model"
)

func validationTable() *model.Table {
	t := model.NewTable([]string{"ResponseId", "Country", "DevType", "survey_year"})
	t.Append(model.Row{"ResponseId": "1", "Country": "United States", "DevType": "Developer, full-stack", "survey_year": "2024"})
	t.Append(model.Row{"ResponseId": "2", "Country": "Germany", "DevType": "Data scientist", "survey_year": "2024"})
	t.Append(model.Row{"ResponseId": "3", "Country": "India", "DevType": "DevOps specialist", "survey_year": "2025"})
	return t
}

func TestValidateRemovesExactDuplicates(t *testing.T) {
	table := validationTable()
	table.Append(table.Rows[0].Clone())

	clean, quarantined, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, clean.Len())
	assert.Equal(t, 0, quarantined.Len())
	assert.Equal(t, 1, stats.DuplicatesRemoved)
}

func TestValidateRemovesDuplicateIDsKeepingFirst(t *testing.T) {
	table := validationTable()
	table.Append(model.Row{"ResponseId": "1", "Country": "Canada", "DevType": "Data scientist", "survey_year": "2025"})

	clean, _, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, clean.Len())
	assert.Equal(t, 1, stats.DuplicateIDsRemoved)
	// First occurrence wins.
	assert.Equal(t, "United States", clean.Rows[0]["Country"])
}

func TestValidateQuarantineThreshold(t *testing.T) {
	table := validationTable()
	// 3 of 3 key columns missing: quarantined.
	table.Append(model.Row{"ResponseId": "", "Country": "France", "DevType": "", "survey_year": ""})
	// 1 of 3 key columns missing: kept.
	table.Append(model.Row{"ResponseId": "4", "Country": "Japan", "DevType": "", "survey_year": "2024"})

	clean, quarantined, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 4, clean.Len())
	assert.Equal(t, 1, quarantined.Len())
	assert.Equal(t, "France", quarantined.Rows[0]["Country"])
	assert.Equal(t, 4, stats.RowsValid)
	assert.Equal(t, 1, stats.RowsQuarantined)
}

func TestValidateCleanAndQuarantineCoverPostDedupSet(t *testing.T) {
	table := validationTable()
	table.Append(model.Row{"ResponseId": "", "Country": "Spain", "DevType": "", "survey_year": ""})
	table.Append(table.Rows[1].Clone())

	clean, quarantined, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)

	postDedup := stats.RowsIn - stats.DuplicatesRemoved - stats.DuplicateIDsRemoved
	assert.Equal(t, postDedup, clean.Len()+quarantined.Len())

	// No row appears in both splits.
	cleanIDs := make(map[string]bool)
	for _, row := range clean.Rows {
		cleanIDs[rowSignature(row, clean.Columns)] = true
	}
	for _, row := range quarantined.Rows {
		assert.False(t, cleanIDs[rowSignature(row, quarantined.Columns)])
	}
}

func TestValidateMissingKeyColumnIsSchemaError(t *testing.T) {
	table := model.NewTable([]string{"ResponseId", "Country"})
	table.Append(model.Row{"ResponseId": "1", "Country": "Brazil"})

	_, _, _, err := ValidateTable(table, testConfig())
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "DevType", schemaErr.Column)
}

func TestValidateMissingRequiredColumnIsIssueOnly(t *testing.T) {
	table := model.NewTable([]string{"ResponseId", "DevType", "survey_year"})
	table.Append(model.Row{"ResponseId": "1", "DevType": "Data scientist", "survey_year": "2024"})

	clean, _, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, clean.Len())
	assert.Contains(t, stats.Issues, "missing column: Country")
}

func TestValidateRowsWithMissingIDsAreNotDeduped(t *testing.T) {
	table := validationTable()
	table.Append(model.Row{"ResponseId": "", "Country": "Italy", "DevType": "Data scientist", "survey_year": "2024"})
	table.Append(model.Row{"ResponseId": "", "Country": "Poland", "DevType": "DevOps specialist", "survey_year": "2024"})

	clean, quarantined, stats, err := ValidateTable(table, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.DuplicateIDsRemoved)
	assert.Equal(t, 5, clean.Len()+quarantined.Len())
}

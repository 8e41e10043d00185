package pipeline

import "fmt"

// Structural errors halt a run at the current stage. Value-level anomalies
// (nulls, out-of-range, unparsable text) never surface as errors; they
// degrade to null markers or quarantine decisions so a single bad row
// cannot abort a batch.

// SamplingError reports an unusable sampling request: an empty input table
// or a fraction outside (0, 1].
type SamplingError struct {
	Reason string
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling error: %s", e.Reason)
}

// SchemaError reports a column that must exist but is absent from the
// table's column set.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: required column %q is missing", e.Column)
}

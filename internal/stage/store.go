// Package stage persists each pipeline stage's output table and statistics
// record under a per-stage subdirectory, plus the per-run manifest. These
// intermediate files make runs inspectable after the fact and give failed
// runs a resumption point.
package stage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-survey-pipeline/internal/model"
)

// Store manages the stage output directory tree.
type Store struct {
	BaseDir string
}

// NewStore creates a stage store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

// Dir returns (and creates) the directory for one stage.
func (s *Store) Dir(stageName string) (string, error) {
	dir := filepath.Join(s.BaseDir, stageName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create stage directory: %w", err)
	}
	return dir, nil
}

// SaveOutput writes a stage's table and stats record. The table lands in
// output.csv, the stats in stats.json.
func (s *Store) SaveOutput(stageName string, t *model.Table, stats *model.StageStats) error {
	dir, err := s.Dir(stageName)
	if err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, "output.csv"), t); err != nil {
		return fmt.Errorf("failed to save %s output: %w", stageName, err)
	}
	return s.writeJSON(filepath.Join(dir, "stats.json"), stats)
}

// SaveAux writes an additional named table for a stage (e.g. the
// validator's quarantine split).
func (s *Store) SaveAux(stageName, fileName string, t *model.Table) error {
	dir, err := s.Dir(stageName)
	if err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, fileName), t)
}

// ManifestPath is where a run's manifest lives.
func (s *Store) ManifestPath(runID string) string {
	return filepath.Join(s.BaseDir, fmt.Sprintf("run_%s.json", runID))
}

// SaveManifest writes the run manifest.
func (s *Store) SaveManifest(m *model.RunManifest) error {
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create stage directory: %w", err)
	}
	return s.writeJSON(s.ManifestPath(m.RunID), m)
}

// LoadManifest reads a previously written run manifest.
func (s *Store) LoadManifest(runID string) (*model.RunManifest, error) {
	data, err := os.ReadFile(s.ManifestPath(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to read run manifest: %w", err)
	}
	var m model.RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse run manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// writeCSV serializes a table in column order.
func writeCSV(path string, t *model.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row.Get(col)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

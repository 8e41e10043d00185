package pipeline

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/model"
)

var yearFromFilename = regexp.MustCompile(`(20\d{2})`)

// DiscoverFiles finds CSV files under inputPath. A single .csv file is
// returned directly; .zip archives (either inputPath itself or any zip
// inside an input directory) are extracted into extractDir and their CSVs
// included. Results are sorted for deterministic load order.
func DiscoverFiles(inputPath, extractDir string) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input path %s: %w", inputPath, err)
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(inputPath)) {
		case ".csv":
			return []string{inputPath}, nil
		case ".zip":
			return extractZip(inputPath, extractDir)
		}
		return nil, nil
	}

	var csvPaths []string
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			csvPaths = append(csvPaths, path)
		case ".zip":
			extracted, zerr := extractZip(path, extractDir)
			if zerr != nil {
				return zerr
			}
			csvPaths = append(csvPaths, extracted...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(csvPaths)
	return csvPaths, nil
}

// extractZip unpacks the CSV members of a zip archive into
// extractDir/<archive-stem>/ and returns their paths.
func extractZip(zipPath, extractDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	destRoot := filepath.Join(extractDir, stem)

	var out []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.ToLower(filepath.Ext(f.Name)) != ".csv" {
			continue
		}
		// Flatten archive paths; member names never escape destRoot.
		dest := filepath.Join(destRoot, filepath.Base(f.Name))
		if err := os.MkdirAll(destRoot, 0755); err != nil {
			return nil, err
		}
		if err := copyZipMember(f, dest); err != nil {
			return nil, fmt.Errorf("failed to extract %s from %s: %w", f.Name, zipPath, err)
		}
		out = append(out, dest)
	}
	sort.Strings(out)
	return out, nil
}

func copyZipMember(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, rc)
	return err
}

// LoadTable reads and concatenates CSV files into a single table over the
// union of their columns; cells absent from a file read as null. When the
// year column is missing from a file, a 20xx token in the filename supplies
// it (survey exports are named by year). Files named like *schema* are
// skipped; they describe questions, not responses, and explode the column
// set.
func LoadTable(files []string, cfg *config.Config) (*model.Table, *model.StageStats, error) {
	stats := &model.StageStats{Stage: "load"}
	table := model.NewTable(nil)

	for _, file := range files {
		if strings.Contains(strings.ToLower(filepath.Base(file)), "schema") {
			fmt.Printf("  Skipping schema file: %s\n", filepath.Base(file))
			continue
		}
		rows, columns, err := readCSV(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		year := ""
		if m := yearFromFilename.FindString(filepath.Base(file)); m != "" {
			year = m
		}

		hasYearCol := false
		for _, c := range columns {
			if c == cfg.YearColumn {
				hasYearCol = true
				break
			}
		}

		for _, c := range columns {
			table.AddColumn(c)
		}
		if !hasYearCol && year != "" {
			table.AddColumn(cfg.YearColumn)
		}

		for _, row := range rows {
			if !hasYearCol && year != "" {
				row[cfg.YearColumn] = year
			}
			table.Append(row)
		}

		stats.Files++
		fmt.Printf("  Loaded %s: %d rows\n", filepath.Base(file), len(rows))
	}

	stats.RowsOut = table.Len()
	return table, stats, nil
}

// readCSV parses one delimited file into rows keyed by cleaned header names.
func readCSV(path string) ([]model.Row, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		headers[i] = strings.ReplaceAll(h, `"`, "")
	}

	var rows []model.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("CSV read error: %w", err)
		}
		row := make(model.Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, headers, nil
}

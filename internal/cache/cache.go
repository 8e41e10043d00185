// Package cache persists the enriched survey table into a single-file
// SQLite store that downstream query components read. Every successful
// build wholly replaces the previous dataset and its metadata; there is
// no merge path.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-survey-pipeline/internal/model"
	"go-survey-pipeline/pkg/utils"
)

const (
	dataTable = "survey_data"
	metaTable = "cache_meta"
)

// WriteError reports a cache transaction that could not commit. The
// previously cached dataset remains intact and readable.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cache write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrNoCache signals that no cache has ever been written. Callers should
// treat this as "nothing here yet", not a failure.
var ErrNoCache = errors.New("survey cache does not exist")

// Cache reads and writes one cache database file.
type Cache struct {
	path       string
	yearColumn string
}

// New creates a cache handle for the given database path. yearColumn is
// used to derive the distinct-years metadata entry.
func New(path, yearColumn string) *Cache {
	return &Cache{path: path, yearColumn: yearColumn}
}

// Path returns the cache database file path.
func (c *Cache) Path() string {
	return c.path
}

// Exists reports whether a cache file has been written.
func (c *Cache) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Build writes the table and its metadata in a single transaction. The
// data table is dropped and recreated inside the transaction, so a reader
// on another connection sees either the prior dataset or the new one,
// never a partial write. On commit failure the prior cache is untouched
// and a WriteError is returned.
func (c *Cache) Build(t *model.Table, source string) (*model.CacheResult, error) {
	db, err := sql.Open("sqlite3", c.path)
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, dataTable)); err != nil {
		return nil, &WriteError{Err: err}
	}

	colDefs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		colDefs[i] = quoteIdent(col) + " TEXT"
	}
	createStmt := fmt.Sprintf(`CREATE TABLE %s (%s)`, dataTable, strings.Join(colDefs, ", "))
	if _, err := tx.Exec(createStmt); err != nil {
		return nil, &WriteError{Err: err}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	quoted := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		quoted[i] = quoteIdent(col)
	}
	insert, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`, dataTable, strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	defer insert.Close()

	args := make([]interface{}, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			args[i] = row.Get(col)
		}
		if _, err := insert.Exec(args...); err != nil {
			return nil, &WriteError{Err: err}
		}
	}

	years := c.distinctYears(t)
	meta := model.CacheMetadata{
		BuiltAt: nowUTC(),
		Source:  source,
		Years:   years,
	}
	if err := writeMeta(tx, meta); err != nil {
		return nil, &WriteError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &WriteError{Err: err}
	}

	return &model.CacheResult{OK: true, Rows: t.Len(), Path: c.path, Years: years}, nil
}

// writeMeta wholesale-replaces the metadata table within the transaction.
func writeMeta(tx *sql.Tx, meta model.CacheMetadata) error {
	if _, err := tx.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT)`, metaTable)); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, metaTable)); err != nil {
		return err
	}
	_, err := tx.Exec(fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES (?, ?), (?, ?), (?, ?)`, metaTable),
		"built_at", meta.BuiltAt, "source", meta.Source, "years", meta.Years)
	return err
}

// distinctYears returns the comma-joined sorted set of normalized year
// values present in the table.
func (c *Cache) distinctYears(t *model.Table) string {
	set := make(map[string]bool)
	for _, row := range t.Rows {
		y, _ := utils.NormalizeYear(row.Get(c.yearColumn))
		if !model.IsMissing(y) {
			set[y] = true
		}
	}
	years := make([]string, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Strings(years)
	return strings.Join(years, ", ")
}

// Read returns the cached table and its metadata, or ErrNoCache if
// nothing has ever been written.
func (c *Cache) Read() (*model.Table, *model.CacheMetadata, error) {
	return c.read("")
}

// ReadYear returns only the rows matching the given survey year.
func (c *Cache) ReadYear(year string) (*model.Table, *model.CacheMetadata, error) {
	return c.read(year)
}

func (c *Cache) read(year string) (*model.Table, *model.CacheMetadata, error) {
	if !c.Exists() {
		return nil, nil, ErrNoCache
	}

	db, err := sql.Open("sqlite3", c.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	defer db.Close()

	ok, err := tableExists(db, dataTable)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNoCache
	}

	query := fmt.Sprintf(`SELECT * FROM %s`, dataTable)
	var args []interface{}
	if year != "" {
		query += fmt.Sprintf(` WHERE %s = ?`, quoteIdent(c.yearColumn))
		args = append(args, year)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	t := model.NewTable(columns)
	values := make([]sql.NullString, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		row := make(model.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i].String
		}
		t.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	meta, err := readMeta(db)
	if err != nil {
		return nil, nil, err
	}
	return t, meta, nil
}

func readMeta(db *sql.DB) (*model.CacheMetadata, error) {
	ok, err := tableExists(db, metaTable)
	if err != nil || !ok {
		return &model.CacheMetadata{}, err
	}

	rows, err := db.Query(fmt.Sprintf(`SELECT key, value FROM %s`, metaTable))
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}
	defer rows.Close()

	meta := &model.CacheMetadata{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		switch k {
		case "built_at":
			meta.BuiltAt = v
		case "source":
			meta.Source = v
		case "years":
			meta.Years = v
		}
	}
	return meta, rows.Err()
}

// Stats describes the cache for introspection surfaces (CLI, API).
func (c *Cache) Stats() (*model.CacheStats, error) {
	if !c.Exists() {
		return &model.CacheStats{Exists: false}, nil
	}

	info, err := os.Stat(c.path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	defer db.Close()

	stats := &model.CacheStats{
		Exists:    true,
		Path:      c.path,
		SizeBytes: info.Size(),
		SizeMB:    math.Round(float64(info.Size())/(1024*1024)*100) / 100,
	}

	ok, err := tableExists(db, dataTable)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, dataTable)).Scan(&stats.Rows); err != nil {
			return nil, err
		}
	}

	meta, err := readMeta(db)
	if err != nil {
		return nil, err
	}
	stats.BuiltAt = meta.BuiltAt
	stats.Source = meta.Source
	stats.Years = meta.Years
	return stats, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect cache schema: %w", err)
	}
	return count > 0, nil
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

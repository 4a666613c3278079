package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// FileName is the database file inside the database directory.
const FileName = "arcrest2shp.db"

// RunDB provides SQLite-based storage for run history.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so the history command can
	// read while a run is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Workers write concurrently; SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root_url TEXT NOT NULL,
		aoi_path TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- URLs visited by the crawler
	CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		result TEXT NOT NULL,
		link_count INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_urls_run ON urls(run_id);

	-- Inventory rows
	CREATE TABLE IF NOT EXISTS layers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT,
		name TEXT NOT NULL,
		geometry_type TEXT,
		description TEXT,
		url TEXT NOT NULL,
		extraction_date TEXT NOT NULL,
		out_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_layers_run ON layers(run_id);
	CREATE INDEX IF NOT EXISTS idx_layers_url ON layers(url);

	-- Error log rows
	CREATE TABLE IF NOT EXISTS layer_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT,
		url TEXT NOT NULL,
		extraction_date TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_errors_run ON layer_errors(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts the run row. The summary must carry an ID.
func (rdb *RunDB) StartRun(ctx context.Context, s *model.RunSummary) error {
	if s.ID == "" {
		return errors.New("run summary has no ID")
	}

	query := `
	INSERT INTO runs (id, root_url, aoi_path, output_dir, started_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := rdb.db.ExecContext(ctx, query,
		s.ID,
		s.RootURL,
		s.AOIPath,
		s.OutputDir,
		s.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counts of a run started with StartRun.
func (rdb *RunDB) FinishRun(ctx context.Context, s *model.RunSummary) error {
	summaryJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	UPDATE runs SET finished_at = ?, summary_json = ?
	WHERE id = ?
	`

	result, err := rdb.db.ExecContext(ctx, query,
		s.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(summaryJSON),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", s.ID)
	}
	return nil
}

// InsertURL records how a visited URL resolved. Uses UPSERT so a URL
// recorded twice in one run keeps the latest result.
func (rdb *RunDB) InsertURL(ctx context.Context, runID, url, result string, linkCount int) error {
	query := `
	INSERT INTO urls (run_id, url, result, link_count)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		result = excluded.result,
		link_count = excluded.link_count,
		timestamp = CURRENT_TIMESTAMP
	`

	if _, err := rdb.db.ExecContext(ctx, query, runID, url, result, linkCount); err != nil {
		return fmt.Errorf("failed to insert url: %w", err)
	}
	return nil
}

// InsertLayer records an inventory row.
func (rdb *RunDB) InsertLayer(ctx context.Context, runID string, kind model.LayerKind, row model.InventoryRow) error {
	query := `
	INSERT INTO layers (run_id, kind, source, name, geometry_type, description, url, extraction_date, out_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := rdb.db.ExecContext(ctx, query,
		runID,
		kind.String(),
		row.Source,
		row.Name,
		row.GeometryType,
		row.Description,
		row.URL,
		row.ExtractionDate.UTC().Format(time.RFC3339Nano),
		row.OutPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert layer: %w", err)
	}
	return nil
}

// InsertError records an error log row.
func (rdb *RunDB) InsertError(ctx context.Context, runID string, row model.ErrorRow) error {
	query := `
	INSERT INTO layer_errors (run_id, name, url, extraction_date, error)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := rdb.db.ExecContext(ctx, query,
		runID,
		row.Name,
		row.URL,
		row.ExtractionDate.UTC().Format(time.RFC3339Nano),
		row.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert error: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns all runs.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := `
	SELECT id, root_url, aoi_path, output_dir, started_at, finished_at, summary_json
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run by ID or by a unique ID prefix. It returns nil
// when no run matches.
func (rdb *RunDB) GetRun(ctx context.Context, idOrPrefix string) (*model.RunSummary, error) {
	query := `
	SELECT id, root_url, aoi_path, output_dir, started_at, finished_at, summary_json
	FROM runs
	WHERE id = ? OR id LIKE ? || '%'
	ORDER BY (id = ?) DESC, started_at DESC
	LIMIT 1
	`

	row := rdb.db.QueryRowContext(ctx, query, idOrPrefix, idOrPrefix, idOrPrefix)
	s, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.RunSummary, error) {
	var (
		s           model.RunSummary
		startedAt   string
		finishedAt  sql.NullString
		summaryJSON sql.NullString
	)
	err := sc.Scan(&s.ID, &s.RootURL, &s.AOIPath, &s.OutputDir, &startedAt, &finishedAt, &summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	// A finished run carries its counts as JSON; unfinished runs keep only
	// the columns.
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &s); err != nil {
			return nil, fmt.Errorf("failed to parse run summary: %w", err)
		}
	}
	s.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		s.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &s, nil
}

// LayerRecord is a stored inventory row.
type LayerRecord struct {
	ID    int64
	RunID string
	Kind  string
	Row   model.InventoryRow
}

// GetLayers returns the inventory rows of a run in insertion order.
func (rdb *RunDB) GetLayers(ctx context.Context, runID string) ([]LayerRecord, error) {
	query := `
	SELECT id, run_id, kind, source, name, geometry_type, description, url, extraction_date, out_path
	FROM layers
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get layers: %w", err)
	}
	defer rows.Close()

	var results []LayerRecord
	for rows.Next() {
		var rec LayerRecord
		var date string
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Kind,
			&rec.Row.Source,
			&rec.Row.Name,
			&rec.Row.GeometryType,
			&rec.Row.Description,
			&rec.Row.URL,
			&date,
			&rec.Row.OutPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		rec.Row.ExtractionDate = parseTimestamp(date)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetErrors returns the error log rows of a run in insertion order.
func (rdb *RunDB) GetErrors(ctx context.Context, runID string) ([]model.ErrorRow, error) {
	query := `
	SELECT name, url, extraction_date, error
	FROM layer_errors
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get errors: %w", err)
	}
	defer rows.Close()

	var results []model.ErrorRow
	for rows.Next() {
		var row model.ErrorRow
		var date string
		if err := rows.Scan(&row.Name, &row.URL, &date, &row.Error); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		row.ExtractionDate = parseTimestamp(date)
		results = append(results, row)
	}

	return results, rows.Err()
}

// CountURLs returns the number of visited URLs recorded for a run,
// grouped by result.
func (rdb *RunDB) CountURLs(ctx context.Context, runID string) (map[string]int, error) {
	query := `
	SELECT result, COUNT(*) FROM urls
	WHERE run_id = ?
	GROUP BY result
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count urls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("failed to scan url count: %w", err)
		}
		counts[result] = n
	}
	return counts, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Remap kinds.
const (
	KindImage      = "image"
	KindAnnotation = "annotation"
)

// Run summarizes one successful merge.
type Run struct {
	RunID       string
	Dataset     string
	Split       string
	SplitType   string
	BBoxType    string
	OutputPath  string
	Images      int
	Annotations int
	CreatedAt   time.Time
}

// SceneRemap holds the old-to-new identifier pairs of one scene.
type SceneRemap struct {
	SceneID     int
	Images      map[int64]int64
	Annotations map[int64]int64
}

// Remap is one stored identifier pair.
type Remap struct {
	SceneID int
	Kind    string
	OldID   int64
	NewID   int64
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// RecordRun stores a run and all of its scene remaps in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, scenes []SceneRemap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, dataset, split, split_type, bbox_type, output_path, images, annotations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Dataset, run.Split, run.SplitType, run.BBoxType, run.OutputPath,
		run.Images, run.Annotations, run.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO remaps (run_id, scene_id, kind, old_id, new_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare remap insert: %w", err)
	}
	defer stmt.Close()

	for _, scene := range scenes {
		for _, pair := range sortedPairs(scene.Images) {
			if _, err := stmt.ExecContext(ctx, run.RunID, scene.SceneID, KindImage, pair[0], pair[1]); err != nil {
				return fmt.Errorf("insert image remap for scene %d: %w", scene.SceneID, err)
			}
		}
		for _, pair := range sortedPairs(scene.Annotations) {
			if _, err := stmt.ExecContext(ctx, run.RunID, scene.SceneID, KindAnnotation, pair[0], pair[1]); err != nil {
				return fmt.Errorf("insert annotation remap for scene %d: %w", scene.SceneID, err)
			}
		}
	}
	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dataset, split, split_type, bbox_type, output_path, images, annotations, created_at
		 FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.RunID, &run.Dataset, &run.Split, &run.SplitType, &run.BBoxType,
			&run.OutputPath, &run.Images, &run.Annotations, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse run %s created_at: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Remaps lists the identifier pairs of a run ordered by kind and new ID.
// A negative sceneID returns every scene.
func (s *Store) Remaps(ctx context.Context, runID string, sceneID int) ([]Remap, error) {
	query := "SELECT scene_id, kind, old_id, new_id FROM remaps WHERE run_id = ?"
	args := []any{runID}
	if sceneID >= 0 {
		query += " AND scene_id = ?"
		args = append(args, sceneID)
	}
	query += " ORDER BY kind DESC, new_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query remaps: %w", err)
	}
	defer rows.Close()

	var remaps []Remap
	for rows.Next() {
		var r Remap
		if err := rows.Scan(&r.SceneID, &r.Kind, &r.OldID, &r.NewID); err != nil {
			return nil, fmt.Errorf("scan remap: %w", err)
		}
		remaps = append(remaps, r)
	}
	return remaps, rows.Err()
}

func sortedPairs(m map[int64]int64) [][2]int64 {
	pairs := make([][2]int64, 0, len(m))
	for oldID, newID := range m {
		pairs = append(pairs, [2]int64{oldID, newID})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][1] < pairs[j][1] })
	return pairs
}

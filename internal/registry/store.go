// Package registry keeps a SQLite history of training runs together with a
// compressed copy of each exported graph.
package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
	run_id        TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	dataset       TEXT NOT NULL,
	records_in    INTEGER NOT NULL,
	records_used  INTEGER NOT NULL,
	train_size    INTEGER NOT NULL,
	test_size     INTEGER NOT NULL,
	classes_json  TEXT NOT NULL,
	scales_json   TEXT NOT NULL,
	vocab_json    TEXT NOT NULL,
	report_json   TEXT NOT NULL,
	warnings      TEXT,
	graph_snappy  BLOB
);

CREATE TABLE IF NOT EXISTS stage_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	stage         TEXT NOT NULL,
	detail        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stage_log_run ON stage_log(run_id);
`
// #endregion schema

// #region registry-struct
// Registry manages the run history in SQLite.
type Registry struct {
	db *sql.DB
}
// #endregion registry-struct

// #region constructor
// Open opens (or creates) the registry database and runs migrations.
func Open(dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Registry{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the stage log.
func (r *Registry) DB() *sql.DB {
	return r.db
}
// #endregion db-accessor

// #region record
// Record stores run and the serialized graph. A missing RunID or CreatedAt
// is filled in; the stored run is returned.
func (r *Registry) Record(run Run, graph []byte) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	classesJSON, err := json.Marshal(run.Classes)
	if err != nil {
		return Run{}, fmt.Errorf("marshal classes: %w", err)
	}
	scalesJSON, err := json.Marshal(run.Scales)
	if err != nil {
		return Run{}, fmt.Errorf("marshal scales: %w", err)
	}
	vocabJSON, err := json.Marshal(run.Vocabulary)
	if err != nil {
		return Run{}, fmt.Errorf("marshal vocabulary: %w", err)
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return Run{}, fmt.Errorf("marshal report: %w", err)
	}

	var blob interface{}
	if len(graph) > 0 {
		blob = snappy.Encode(nil, graph)
	}

	_, err = r.db.Exec(
		`INSERT INTO training_runs (run_id, created_at, dataset, records_in, records_used, train_size, test_size,
		 classes_json, scales_json, vocab_json, report_json, warnings, graph_snappy)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.Format(time.RFC3339Nano), run.Dataset,
		run.RecordsIn, run.RecordsUsed, run.TrainSize, run.TestSize,
		string(classesJSON), string(scalesJSON), string(vocabJSON), string(reportJSON),
		nullIfEmpty(strings.Join(run.Warnings, "\n")), blob,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}
// #endregion record

// #region get
const runColumns = `run_id, created_at, dataset, records_in, records_used, train_size, test_size,
	classes_json, scales_json, vocab_json, report_json, warnings`

// Get retrieves one run by ID.
func (r *Registry) Get(id string) (Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM training_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}
// #endregion get

// #region list
// List returns the most recent runs, newest first. limit <= 0 returns all.
func (r *Registry) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM training_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
// #endregion list

// #region graph
// Graph returns the decompressed graph stored with a run.
func (r *Registry) Graph(id string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT graph_snappy FROM training_runs WHERE run_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get graph %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", id, err)
	}
	if blob == nil {
		return nil, nil
	}
	graph, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("decompress graph %s: %w", id, err)
	}
	return graph, nil
}
// #endregion graph

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var createdStr, classesJSON, scalesJSON, vocabJSON, reportJSON string
	var warnings sql.NullString

	if err := s.Scan(&run.RunID, &createdStr, &run.Dataset, &run.RecordsIn, &run.RecordsUsed,
		&run.TrainSize, &run.TestSize, &classesJSON, &scalesJSON, &vocabJSON, &reportJSON, &warnings); err != nil {
		return Run{}, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if err := json.Unmarshal([]byte(classesJSON), &run.Classes); err != nil {
		return Run{}, fmt.Errorf("unmarshal classes: %w", err)
	}
	if err := json.Unmarshal([]byte(scalesJSON), &run.Scales); err != nil {
		return Run{}, fmt.Errorf("unmarshal scales: %w", err)
	}
	if err := json.Unmarshal([]byte(vocabJSON), &run.Vocabulary); err != nil {
		return Run{}, fmt.Errorf("unmarshal vocabulary: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
		return Run{}, fmt.Errorf("unmarshal report: %w", err)
	}
	if warnings.Valid {
		run.Warnings = strings.Split(warnings.String, "\n")
	}
	return run, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion scan

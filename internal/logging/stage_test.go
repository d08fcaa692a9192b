package logging

import (
	"bytes"
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE stage_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		stage      TEXT NOT NULL,
		detail     TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
// #endregion helpers

// #region log-stage-tests
func TestLogStage_Success(t *testing.T) {
	db := setupDB(t)

	entry := StageEntry{
		RunID:     "run-1",
		Stage:     StageFilter,
		Detail:    `{"kept":10,"dropped":2}`,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogStage(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Stages(db, "run-1")
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].RunID != entry.RunID || got[0].Stage != entry.Stage || got[0].Detail != entry.Detail || !got[0].CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("round trip mismatch: %+v vs %+v", got[0], entry)
	}
}

func TestLogStage_DefaultsTimeAndNullDetail(t *testing.T) {
	db := setupDB(t)

	if err := LogStage(db, StageEntry{RunID: "run-1", Stage: StageExport}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var detail sql.NullString
	var created string
	db.QueryRow("SELECT detail, created_at FROM stage_log").Scan(&detail, &created)
	if detail.Valid {
		t.Errorf("expected NULL detail, got %q", detail.String)
	}
	if _, err := time.Parse(time.RFC3339Nano, created); err != nil {
		t.Errorf("created_at %q not RFC3339: %v", created, err)
	}
}

func TestStages_FiltersByRunInOrder(t *testing.T) {
	db := setupDB(t)
	for _, e := range []StageEntry{
		{RunID: "a", Stage: StageLoad},
		{RunID: "b", Stage: StageLoad},
		{RunID: "a", Stage: StageTrain},
		{RunID: "a", Stage: StageExport},
	} {
		if err := LogStage(db, e); err != nil {
			t.Fatalf("LogStage: %v", err)
		}
	}

	got, err := Stages(db, "a")
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	var names []string
	for _, e := range got {
		names = append(names, e.Stage)
	}
	if strings.Join(names, ",") != "load,train,export" {
		t.Errorf("unexpected stages: %v", names)
	}
}

func TestLogStage_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := LogStage(db, StageEntry{RunID: "x", Stage: StageLoad}); err == nil {
		t.Fatal("expected error without stage_log table")
	}
}
// #endregion log-stage-tests

// #region logger-tests
func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "stage", "train")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "stage=train") {
		t.Errorf("expected structured attr, got %s", out)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Error("unknown level should map to info")
	}
}
// #endregion logger-tests

package store

import (
	"context"

	_ "modernc.org/sqlite"

	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// SQLiteRecorder persists node results and run summaries in a single
// SQLite file, auto-migrating its schema on open.
//
// Grounded in the teacher's SQLiteStore (graph/store/sqlite.go):
// modernc.org/sqlite as a pure-Go driver (no cgo), single-writer
// connection pool, WAL mode for concurrent reads.
type SQLiteRecorder struct {
	inner *sqlRecorder
}

// NewSQLiteRecorder opens (and migrates) a SQLite-backed Recorder. path
// may be a file path or ":memory:".
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	r, err := openSQLRecorder("sqlite", path, dialectSQLite)
	if err != nil {
		return nil, err
	}
	r.db.SetMaxOpenConns(1)
	if _, err := r.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = r.db.Close()
		return nil, err
	}
	return &SQLiteRecorder{inner: r}, nil
}

func (s *SQLiteRecorder) Close() error { return s.inner.Close() }

func (s *SQLiteRecorder) RecordResult(ctx context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) error {
	return s.inner.RecordResult(ctx, workflowID, result)
}

func (s *SQLiteRecorder) RecordRun(ctx context.Context, run RunRecord) error {
	return s.inner.RecordRun(ctx, run)
}

func (s *SQLiteRecorder) ListResults(ctx context.Context, workflowID ids.WorkflowId) ([]wfcontext.NodeExecutionResult, error) {
	return s.inner.ListResults(ctx, workflowID)
}

func (s *SQLiteRecorder) GetRun(ctx context.Context, workflowID ids.WorkflowId) (RunRecord, error) {
	return s.inner.GetRun(ctx, workflowID)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// schema is shared by every database/sql backend this package supports;
// TEXT/INTEGER/REAL are understood by both SQLite and MySQL.
const schema = `
CREATE TABLE IF NOT EXISTS node_results (
	workflow_id VARCHAR(64) NOT NULL,
	node_id     VARCHAR(64) NOT NULL,
	node_name   TEXT NOT NULL,
	success     INTEGER NOT NULL,
	output      TEXT,
	error       TEXT,
	started_at  VARCHAR(40) NOT NULL,
	finished_at VARCHAR(40) NOT NULL,
	attempts    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	workflow_id      VARCHAR(64) PRIMARY KEY,
	state            VARCHAR(32) NOT NULL,
	error            TEXT,
	started_at       VARCHAR(40) NOT NULL,
	completed_at     VARCHAR(40),
	nodes_succeeded  INTEGER NOT NULL,
	nodes_failed     INTEGER NOT NULL,
	nodes_skipped    INTEGER NOT NULL,
	total_attempts   INTEGER NOT NULL,
	total_duration_ns INTEGER NOT NULL
);
`

// sqlRecorder implements Recorder over any database/sql driver that
// accepts "?" placeholders (both modernc.org/sqlite and
// github.com/go-sql-driver/mysql do). dialect only affects the upsert
// syntax in RecordRun, since SQLite's "ON CONFLICT" and MySQL's "ON
// DUPLICATE KEY UPDATE" aren't interchangeable.
type sqlRecorder struct {
	db      *sql.DB
	dialect dialect
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectMySQL
)

func openSQLRecorder(driverName, dsn string, d dialect) (*sqlRecorder, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Config("store: opening %s connection: %v", driverName, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Config("store: pinging %s connection: %v", driverName, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errs.Config("store: running schema migration: %v", err)
	}
	return &sqlRecorder{db: db, dialect: d}, nil
}

func (r *sqlRecorder) Close() error { return r.db.Close() }

func (r *sqlRecorder) RecordResult(ctx context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO node_results (workflow_id, node_id, node_name, success, output, error, started_at, finished_at, attempts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		workflowID.String(), result.NodeID.String(), result.NodeName, boolToInt(result.Success),
		stringifyOutput(result.Output), result.Error,
		result.StartedAt.UTC().Format(time.RFC3339Nano), result.FinishedAt.UTC().Format(time.RFC3339Nano), result.Attempts,
	)
	if err != nil {
		return errs.Config("store: recording node result: %v", err)
	}
	return nil
}

func (r *sqlRecorder) RecordRun(ctx context.Context, run RunRecord) error {
	var completedAt interface{}
	if !run.CompletedAt.IsZero() {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	var upsert string
	switch r.dialect {
	case dialectMySQL:
		upsert = `INSERT INTO runs (workflow_id, state, error, started_at, completed_at, nodes_succeeded, nodes_failed, nodes_skipped, total_attempts, total_duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   state = VALUES(state), error = VALUES(error), completed_at = VALUES(completed_at),
		   nodes_succeeded = VALUES(nodes_succeeded), nodes_failed = VALUES(nodes_failed),
		   nodes_skipped = VALUES(nodes_skipped), total_attempts = VALUES(total_attempts),
		   total_duration_ns = VALUES(total_duration_ns)`
	default:
		upsert = `INSERT INTO runs (workflow_id, state, error, started_at, completed_at, nodes_succeeded, nodes_failed, nodes_skipped, total_attempts, total_duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (workflow_id) DO UPDATE SET
		   state = excluded.state, error = excluded.error, completed_at = excluded.completed_at,
		   nodes_succeeded = excluded.nodes_succeeded, nodes_failed = excluded.nodes_failed,
		   nodes_skipped = excluded.nodes_skipped, total_attempts = excluded.total_attempts,
		   total_duration_ns = excluded.total_duration_ns`
	}

	_, err := r.db.ExecContext(ctx, upsert,
		run.WorkflowID.String(), string(run.State), run.Error, run.StartedAt.UTC().Format(time.RFC3339Nano), completedAt,
		run.Stats.NodesSucceeded, run.Stats.NodesFailed, run.Stats.NodesSkipped, run.Stats.TotalAttempts, run.Stats.TotalDuration.Nanoseconds(),
	)
	if err != nil {
		return errs.Config("store: recording run: %v", err)
	}
	return nil
}

func (r *sqlRecorder) ListResults(ctx context.Context, workflowID ids.WorkflowId) ([]wfcontext.NodeExecutionResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT node_id, node_name, success, output, error, started_at, finished_at, attempts
		 FROM node_results WHERE workflow_id = ? ORDER BY started_at ASC`,
		workflowID.String(),
	)
	if err != nil {
		return nil, errs.Config("store: listing results: %v", err)
	}
	defer rows.Close()

	var out []wfcontext.NodeExecutionResult
	for rows.Next() {
		var (
			nodeIDStr, nodeName, output, errMsg, startedAt, finishedAt string
			success                                                   int
			attempts                                                  int
		)
		if err := rows.Scan(&nodeIDStr, &nodeName, &success, &output, &errMsg, &startedAt, &finishedAt, &attempts); err != nil {
			return nil, errs.Config("store: scanning result row: %v", err)
		}
		nodeID, err := ids.NodeIdFromString(nodeIDStr)
		if err != nil {
			return nil, errs.Config("store: invalid node id in row: %v", err)
		}
		started, _ := time.Parse(time.RFC3339Nano, startedAt)
		finished, _ := time.Parse(time.RFC3339Nano, finishedAt)
		out = append(out, wfcontext.NodeExecutionResult{
			NodeID: nodeID, NodeName: nodeName, Success: success != 0,
			Output: output, Error: errMsg, StartedAt: started, FinishedAt: finished, Attempts: attempts,
		})
	}
	return out, rows.Err()
}

func (r *sqlRecorder) GetRun(ctx context.Context, workflowID ids.WorkflowId) (RunRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT state, error, started_at, completed_at, nodes_succeeded, nodes_failed, nodes_skipped, total_attempts, total_duration_ns
		 FROM runs WHERE workflow_id = ?`,
		workflowID.String(),
	)
	var (
		state, errMsg, startedAt string
		completedAt              sql.NullString
		stats                    wfcontext.Stats
		totalDurationNs          int64
	)
	if err := row.Scan(&state, &errMsg, &startedAt, &completedAt, &stats.NodesSucceeded, &stats.NodesFailed, &stats.NodesSkipped, &stats.TotalAttempts, &totalDurationNs); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, errs.Config("store: reading run: %v", err)
	}
	stats.TotalDuration = time.Duration(totalDurationNs)
	started, _ := time.Parse(time.RFC3339Nano, startedAt)
	run := RunRecord{WorkflowID: workflowID, State: wfcontext.StateKind(state), Error: errMsg, StartedAt: started, Stats: stats}
	if completedAt.Valid {
		run.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stringifyOutput(output interface{}) string {
	if s, ok := output.(string); ok {
		return s
	}
	if output == nil {
		return ""
	}
	data, err := json.Marshal(output)
	if err != nil {
		return ""
	}
	return string(data)
}

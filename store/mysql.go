package store

import (
	"context"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// MySQLRecorder persists node results and run summaries in MySQL, for
// deployments that already run a MySQL instance for everything else and
// would rather not add a second storage engine just for audit trail.
//
// Grounded in the teacher's MySQLStore (graph/store/mysql.go): same
// schema-on-open migration, same database/sql-based access pattern as
// SQLiteRecorder, swapping only the driver and upsert dialect.
type MySQLRecorder struct {
	inner *sqlRecorder
}

// NewMySQLRecorder opens (and migrates) a MySQL-backed Recorder. dsn
// follows github.com/go-sql-driver/mysql's DSN format
// ("user:pass@tcp(host:port)/dbname").
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	r, err := openSQLRecorder("mysql", dsn, dialectMySQL)
	if err != nil {
		return nil, err
	}
	return &MySQLRecorder{inner: r}, nil
}

func (m *MySQLRecorder) Close() error { return m.inner.Close() }

func (m *MySQLRecorder) RecordResult(ctx context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) error {
	return m.inner.RecordResult(ctx, workflowID, result)
}

func (m *MySQLRecorder) RecordRun(ctx context.Context, run RunRecord) error {
	return m.inner.RecordRun(ctx, run)
}

func (m *MySQLRecorder) ListResults(ctx context.Context, workflowID ids.WorkflowId) ([]wfcontext.NodeExecutionResult, error) {
	return m.inner.ListResults(ctx, workflowID)
}

func (m *MySQLRecorder) GetRun(ctx context.Context, workflowID ids.WorkflowId) (RunRecord, error) {
	return m.inner.GetRun(ctx, workflowID)
}

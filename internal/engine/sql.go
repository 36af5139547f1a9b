package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/khanglvm/quest-eval/internal/corpus"
)

// opener returns a database whose server notices are written to out.
type opener func(out *syncBuffer) (*sql.DB, error)

// SQLExecutor runs examples statement by statement over database/sql and
// renders a psql-style transcript.
type SQLExecutor struct {
	kind    Kind
	open    opener
	timeout time.Duration
	logger  *zap.Logger
}

// NewSQLiteExecutor runs each example against a fresh in-memory SQLite database.
func NewSQLiteExecutor(timeout time.Duration, logger *zap.Logger) *SQLExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLExecutor{
		kind: KindSQLite,
		open: func(*syncBuffer) (*sql.DB, error) {
			return sql.Open("sqlite", ":memory:")
		},
		timeout: timeout,
		logger:  logger,
	}
}

// NewPostgresExecutor runs each example inside a throwaway schema on the database at dsn.
func NewPostgresExecutor(dsn string, timeout time.Duration, logger *zap.Logger) (*SQLExecutor, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres engine requires a dsn")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pq.NewConnector(dsn); err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}

	return &SQLExecutor{
		kind: KindPostgres,
		open: func(out *syncBuffer) (*sql.DB, error) {
			base, err := pq.NewConnector(dsn)
			if err != nil {
				return nil, err
			}
			connector := pq.ConnectorWithNoticeHandler(base, func(notice *pq.Error) {
				fmt.Fprintf(out, "%s:  %s\n", notice.Severity, notice.Message)
			})
			return sql.OpenDB(connector), nil
		},
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Execute implements Executor. Each example gets its own connection.
func (e *SQLExecutor) Execute(ctx context.Context, ex corpus.Example) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	var out syncBuffer

	db, err := e.open(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", e.kind, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", e.kind, err)
	}
	defer conn.Close()

	if e.kind == KindPostgres {
		cleanup, err := isolate(ctx, conn)
		if err != nil {
			return nil, err
		}
		defer cleanup()
	}

	for _, stmt := range SplitStatements(ex.Source) {
		if err := ctx.Err(); err != nil {
			break
		}
		runStatement(ctx, conn, stmt, &out)
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("execution timed out after %v", e.timeout)
	}

	return &Result{
		Transcript: out.String(),
		Succeeded:  true,
		Duration:   time.Since(start),
	}, nil
}

// isolate creates a private schema for one example and returns its cleanup.
func isolate(ctx context.Context, conn *sql.Conn) (func(), error) {
	schema := "qe_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	if _, err := conn.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		return nil, fmt.Errorf("failed to create example schema: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SET search_path TO "+schema+", public"); err != nil {
		return nil, fmt.Errorf("failed to set search_path: %w", err)
	}

	return func() {
		// the example may have left a transaction open or the context may be done
		dropCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = conn.ExecContext(dropCtx, "ROLLBACK")
		_, _ = conn.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
	}, nil
}

// Ping opens a connection and runs SELECT 1.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	var out syncBuffer
	db, err := e.open(&out)
	if err != nil {
		return err
	}
	defer db.Close()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%s ping failed: %w", e.kind, err)
	}
	return nil
}

// Close implements Executor. Databases are per example, so there is nothing to release.
func (e *SQLExecutor) Close() error {
	return nil
}

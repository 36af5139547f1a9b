/*
Package engine runs examples and captures their transcripts.

Three executors are available:
  - sqlite: a fresh in-memory database per example (modernc.org/sqlite)
  - postgres: an isolated, throwaway schema per example (lib/pq)
  - process: an external command fed the source on stdin (e.g. psql)

Executors only report infrastructure failures as errors. Statement errors
inside an example are transcript content.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
)

// Kind selects an executor implementation.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindProcess  Kind = "process"
)

// DefaultTimeout bounds a single example's execution.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of running one example.
type Result struct {
	Transcript string
	Succeeded  bool
	ExitCode   int
	Duration   time.Duration
}

// Executor runs examples. Implementations are safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, ex corpus.Example) (*Result, error)

	// Ping checks that the backing engine is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Options configures New.
type Options struct {
	Kind    Kind
	DSN     string
	Command string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
}

// New creates the executor selected by opts.Kind.
func New(opts Options, logger *zap.Logger) (Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	switch opts.Kind {
	case KindSQLite, "":
		return NewSQLiteExecutor(opts.Timeout, logger), nil
	case KindPostgres:
		return NewPostgresExecutor(opts.DSN, opts.Timeout, logger)
	case KindProcess:
		return NewProcessExecutor(opts.Command, opts.Args, opts.Env, opts.Timeout, logger)
	default:
		return nil, fmt.Errorf("unknown engine kind %q (expected sqlite, postgres or process)", opts.Kind)
	}
}

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
)

// execCommandContext is a variable that allows tests to mock exec.CommandContext
var execCommandContext = exec.CommandContext

// lookPath is a variable that allows tests to mock exec.LookPath
var lookPath = exec.LookPath

// ProcessExecutor pipes each example into an external command.
// Combined stdout and stderr form the transcript.
type ProcessExecutor struct {
	command string
	args    []string
	env     []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewProcessExecutor creates an executor for command. The example source is written to its stdin.
func NewProcessExecutor(command string, args []string, env map[string]string, timeout time.Duration, logger *zap.Logger) (*ProcessExecutor, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("process engine requires a command")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	environ := os.Environ()
	for key, value := range env {
		environ = append(environ, fmt.Sprintf("%s=%s", key, value))
	}

	return &ProcessExecutor{
		command: command,
		args:    args,
		env:     environ,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Execute implements Executor. A non-zero exit is reported through Result, not as an error.
func (p *ProcessExecutor) Execute(ctx context.Context, ex corpus.Example) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := execCommandContext(ctx, p.command, p.args...)
	cmd.Env = p.env
	cmd.Stdin = strings.NewReader(ex.Source)
	cmd.WaitDelay = 2 * time.Second

	var out syncBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("execution timed out after %v", p.timeout)
	}

	result := &Result{
		Transcript: out.String(),
		Succeeded:  err == nil,
		Duration:   duration,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", p.command, err)
		}
		result.ExitCode = exitErr.ExitCode()
		p.logger.Debug("example exited non-zero",
			zap.String("example", ex.Key()),
			zap.Int("exit_code", result.ExitCode))
	}

	return result, nil
}

// Ping checks that the command can be found.
func (p *ProcessExecutor) Ping(context.Context) error {
	if _, err := lookPath(p.command); err != nil {
		return fmt.Errorf("command %q not found: %w", p.command, err)
	}
	return nil
}

// Close implements Executor.
func (p *ProcessExecutor) Close() error {
	return nil
}

// syncBuffer serializes writes from the stdout and stderr copiers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/groland11/nagios-check-security-updates/internal/logging"
)

const (
	// DefaultTimeout bounds every external package-manager invocation.
	DefaultTimeout = 60 * time.Second

	// MaxOutputSize is the maximum size of stdout/stderr to capture
	MaxOutputSize = 1024 * 1024 // 1MB
)

// FailureKind classifies why an external command did not produce usable
// output. The caller maps each kind to a monitoring verdict.
type FailureKind int

const (
	// FailureTimeout: the command exceeded its deadline.
	FailureTimeout FailureKind = iota
	// FailureInvalid: the invocation itself was malformed (e.g. empty argv).
	FailureInvalid
	// FailureNotFound: the command binary could not be located.
	FailureNotFound
	// FailureOther: any other fault, including a non-zero exit.
	FailureOther
)

// CommandError is returned for every failed invocation and carries the
// failure classification alongside the underlying cause.
type CommandError struct {
	Kind FailureKind
	Argv []string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes external commands with a per-invocation timeout.
type Runner struct {
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Runner. A non-positive timeout falls back to DefaultTimeout;
// a nil logger falls back to the component default.
func New(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.L("executor")
	}
	return &Runner{timeout: timeout, log: logger}
}

// Run executes argv and returns its stdout split into lines. Any failure is
// reported as a *CommandError; no retries are attempted.
func (r *Runner) Run(ctx context.Context, argv []string) ([]string, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, &CommandError{Kind: FailureInvalid, Argv: argv, Err: errors.New("empty command line")}
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, &CommandError{Kind: FailureNotFound, Argv: argv, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Debug("running OS command", "argv", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: MaxOutputSize}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: MaxOutputSize}

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &CommandError{
				Kind: FailureTimeout,
				Argv: argv,
				Err:  fmt.Errorf("timed out after %s", r.timeout),
			}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, &CommandError{Kind: FailureOther, Argv: argv, Err: err}
	}

	return splitLines(stdout.String()), nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// limitedWriter wraps a buffer with a size limit
type limitedWriter struct {
	buf     *bytes.Buffer
	limit   int
	written int
}

func (w *limitedWriter) Write(p []byte) (n int, err error) {
	total := len(p)
	if w.written >= w.limit {
		// Discard additional data but don't error
		return total, nil
	}

	remaining := w.limit - w.written
	if len(p) > remaining {
		p = p[:remaining]
	}

	n, err = w.buf.Write(p)
	w.written += n
	return total, err // Return original length to avoid short write errors
}

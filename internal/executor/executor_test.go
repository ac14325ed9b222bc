package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunCapturesStdoutLines(t *testing.T) {
	r := New(0, nil)

	lines, err := r.Run(context.Background(), []string{"sh", "-c", "printf 'one\\ntwo\\n'"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestRunEmptyOutput(t *testing.T) {
	r := New(0, nil)

	lines, err := r.Run(context.Background(), []string{"true"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestRunEmptyArgvIsInvalid(t *testing.T) {
	r := New(0, nil)

	_, err := r.Run(context.Background(), nil)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.Kind != FailureInvalid {
		t.Fatalf("expected FailureInvalid, got %v", cmdErr.Kind)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := New(0, nil)

	_, err := r.Run(context.Background(), []string{"no-such-binary-for-sure"})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.Kind != FailureNotFound {
		t.Fatalf("expected FailureNotFound, got %v", cmdErr.Kind)
	}
}

func TestRunTimeout(t *testing.T) {
	r := New(100*time.Millisecond, nil)

	_, err := r.Run(context.Background(), []string{"sleep", "5"})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.Kind != FailureTimeout {
		t.Fatalf("expected FailureTimeout, got %v", cmdErr.Kind)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := New(0, nil)

	_, err := r.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.Kind != FailureOther {
		t.Fatalf("expected FailureOther, got %v", cmdErr.Kind)
	}
}

package updates

import (
	"errors"

	"github.com/groland11/nagios-check-security-updates/internal/executor"
)

// Severity classifies one pending advisory.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityImportant
	SeverityModerate
	SeverityLow
)

// severityOrder is the rendering and aggregation order of the buckets.
var severityOrder = []Severity{SeverityCritical, SeverityImportant, SeverityModerate, SeverityLow}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityImportant:
		return "Important"
	case SeverityModerate:
		return "Moderate"
	case SeverityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// SLADays is the remediation window for advisories of this severity.
// Critical advisories must be patched within 30 days, everything else
// within 90. Fixed policy, not user data.
func (s Severity) SLADays() int {
	if s == SeverityCritical {
		return 30
	}
	return 90
}

// Verdict is the overall health judgment for one run, in Nagios terms.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictWarning
	VerdictCritical
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictWarning:
		return "WARNING"
	case VerdictCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode maps the verdict to the plugin exit code consumed by the
// monitoring supervisor (0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN).
func (v Verdict) ExitCode() int {
	return int(v)
}

// VerdictForError maps a fatal run error to a verdict: a timed-out or
// invalid invocation is indeterminate, a missing package-manager binary or
// any other command fault is critical.
func VerdictForError(err error) Verdict {
	var cmdErr *executor.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Kind {
		case executor.FailureTimeout, executor.FailureInvalid:
			return VerdictUnknown
		}
	}
	return VerdictCritical
}

// Result is the final outcome of one probe run: the verdict plus the
// rendered report line (summary and perfdata, pipe-delimited).
type Result struct {
	Verdict Verdict
	Message string
}

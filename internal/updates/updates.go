package updates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/groland11/nagios-check-security-updates/internal/cache"
	"github.com/groland11/nagios-check-security-updates/internal/logging"
)

const dateLayout = "2006-01-02"

// Options controls one probe run.
type Options struct {
	// OmitKernel skips kernel advisories (for hosts with live patching).
	OmitKernel bool
	// Verbose logs every pending advisory with its patch deadline.
	Verbose bool
	// Logger receives the run's diagnostics; nil falls back to the
	// component default.
	Logger *slog.Logger
}

// Checker inventories pending security advisories, evaluates their
// remediation deadlines and folds them into a single verdict. One Checker
// serves one run; nothing is shared between runs except the date cache.
type Checker struct {
	source Source
	cache  *cache.Store
	opts   Options
	log    *slog.Logger

	ran       bool
	expired   bool
	nextPatch *time.Time
	buckets   map[Severity]map[string]*time.Time
}

func NewChecker(source Source, store *cache.Store, opts Options) *Checker {
	buckets := make(map[Severity]map[string]*time.Time, len(severityOrder))
	for _, sev := range severityOrder {
		buckets[sev] = make(map[string]*time.Time)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.L("updates")
	}
	return &Checker{
		source:  source,
		cache:   store,
		opts:    opts,
		log:     logger,
		buckets: buckets,
	}
}

// Run fetches the advisory inventory and classifies every line. A failure
// of the external inventory or detail command aborts the run and is
// returned to the caller; everything else degrades gracefully.
func (c *Checker) Run(ctx context.Context) error {
	lines, err := c.source.List(ctx)
	if err != nil {
		return err
	}
	c.ran = true

	for _, line := range lines {
		if err := c.classify(ctx, line); err != nil {
			return err
		}
	}

	if c.opts.Verbose {
		c.logPending()
	}
	return nil
}

// classify applies the parser rules to one inventory line and files the
// advisory into its severity buckets.
func (c *Checker) classify(ctx context.Context, line string) error {
	if m := kernelRe.FindStringSubmatch(line); m != nil && c.opts.OmitKernel {
		if c.opts.Verbose {
			c.log.Info("skipping kernel advisory", logging.KeyPatch, m[1])
		}
		return nil
	}

	// Browser packages are always surfaced as critical, dated today, and
	// never feed the expiration bookkeeping below.
	if m := alwaysCriticalRe.FindString(line); m != "" {
		c.log.Debug("always-critical package pending", logging.KeyLine, line)
		t := today()
		c.buckets[SeverityCritical]["Critical/Sec.  "+strings.TrimSpace(m)] = &t
		return nil
	}

	var expired bool
	var expiration *time.Time

	for _, rule := range severityRules {
		m := rule.re.FindString(line)
		if m == "" {
			continue
		}
		var err error
		expired, expiration, err = c.evaluate(ctx, line, rule.sev.SLADays())
		if err != nil {
			return err
		}
		c.log.Debug("advisory pending", "severity", rule.sev.String(), logging.KeyLine, line)
		c.buckets[rule.sev][m] = expiration
	}

	if expired {
		c.expired = true
	}
	if expiration != nil {
		if c.nextPatch == nil || c.nextPatch.After(*expiration) {
			c.nextPatch = expiration
		}
	}
	return nil
}

// Report folds the classified advisories into the final verdict and the
// rendered report line. Precedence: no inventory ran yet → UNKNOWN; any
// expired SLA advisory alongside a non-critical bucket → WARNING; a
// non-empty critical bucket → CRITICAL, overriding WARNING.
func (c *Checker) Report() Result {
	if !c.ran {
		return Result{Verdict: VerdictUnknown, Message: VerdictUnknown.String()}
	}

	verdict := VerdictOK
	if c.expired && (c.count(SeverityImportant)+c.count(SeverityModerate)+c.count(SeverityLow) > 0) {
		verdict = VerdictWarning
	}
	if c.count(SeverityCritical) > 0 {
		verdict = VerdictCritical
	}

	next := "None"
	if c.nextPatch != nil {
		next = c.nextPatch.Format(dateLayout)
	}

	msg := fmt.Sprintf("%s: Critical=%d Important=%d Moderate=%d Low=%d next_patch_date=%s",
		verdict,
		c.count(SeverityCritical), c.count(SeverityImportant),
		c.count(SeverityModerate), c.count(SeverityLow),
		next)
	perfdata := fmt.Sprintf("Critical=%d;Important=%d;Moderate=%d;Low=%d;",
		c.count(SeverityCritical), c.count(SeverityImportant),
		c.count(SeverityModerate), c.count(SeverityLow))

	message := msg + "|" + perfdata
	c.log.Debug(message)
	return Result{Verdict: verdict, Message: message}
}

// Count returns how many advisories landed in the given severity bucket.
func (c *Checker) Count(sev Severity) int {
	return c.count(sev)
}

func (c *Checker) count(sev Severity) int {
	return len(c.buckets[sev])
}

// NextPatchDate is the earliest remediation deadline across all evaluated
// advisories, or nil when none carries a date.
func (c *Checker) NextPatchDate() *time.Time {
	return c.nextPatch
}

// logPending lists every bucket entry ordered by deadline, soonest first.
// Entries without a deadline sort as due today.
func (c *Checker) logPending() {
	for _, sev := range severityOrder {
		bucket := c.buckets[sev]
		names := make([]string, 0, len(bucket))
		for name := range bucket {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			di, dj := deadlineOrToday(bucket[names[i]]), deadlineOrToday(bucket[names[j]])
			if di.Equal(dj) {
				return names[i] < names[j]
			}
			return di.Before(dj)
		})
		for _, name := range names {
			until := "-"
			if d := bucket[name]; d != nil {
				until = d.Format(dateLayout)
			}
			c.log.Info("patch pending", "until", until, logging.KeyPatch, name)
		}
	}

	next := "None"
	if c.nextPatch != nil {
		next = c.nextPatch.Format(dateLayout)
	}
	c.log.Info("next patch date", "date", next)
}

func deadlineOrToday(d *time.Time) time.Time {
	if d != nil {
		return *d
	}
	return today()
}

// today is the current calendar date, UTC midnight, matching the precision
// of dates stored in the cache.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

package updates

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/groland11/nagios-check-security-updates/internal/logging"
)

// evaluate resolves the advisory's release date — cache first, detail
// command as fallback — and reports whether its remediation window of
// slaDays has elapsed. A resolved date always yields an expiration date,
// expired or not. A line without an isolable identifier is logged and
// contributes nothing.
func (c *Checker) evaluate(ctx context.Context, line string, slaDays int) (bool, *time.Time, error) {
	m := identifierRe.FindString(line)
	if m == "" {
		c.log.Error("advisory line has wrong format", logging.KeyLine, line)
		return false, nil, nil
	}
	id := strings.TrimSpace(m)

	found, patchDate := c.cache.Lookup(id)
	if found {
		c.log.Debug("local cache hit", logging.KeyPatch, id, "date", renderDate(patchDate))
	} else {
		detail, err := c.source.Describe(ctx, id)
		if err != nil {
			return false, nil, err
		}

		// An entry is recorded either way: a missing timestamp becomes a
		// negative cache entry so future runs skip the external call.
		patchDate = firstReleaseDate(c.log, detail)
		if err := c.cache.Record(id, patchDate); err != nil {
			c.log.Error("cache update failed", logging.KeyPatch, id, logging.KeyError, err)
		} else {
			c.log.Debug("local cache updated", logging.KeyPatch, id, "date", renderDate(patchDate))
		}
	}

	if patchDate == nil {
		return false, nil, nil
	}

	expiration := patchDate.AddDate(0, 0, slaDays)
	if !today().Before(expiration) {
		c.log.Debug("timeframe to patch has expired",
			logging.KeyPatch, id, "expiration", expiration.Format(dateLayout), "slaDays", slaDays)
		return true, &expiration, nil
	}
	c.log.Debug("patch within timeframe",
		logging.KeyPatch, id, "expiration", expiration.Format(dateLayout), "slaDays", slaDays)
	return false, &expiration, nil
}

// firstReleaseDate extracts the date of the first Updated/Issued timestamp
// line, truncated to calendar-date precision.
func firstReleaseDate(logger *slog.Logger, lines []string) *time.Time {
	for _, l := range lines {
		m := releaseRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		ts, err := time.Parse("2006-1-2 15:4:5", m[2])
		if err != nil {
			logger.Error("unparseable release timestamp", "value", m[2], logging.KeyError, err)
			return nil
		}
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

func renderDate(d *time.Time) string {
	if d == nil {
		return "None"
	}
	return d.Format(dateLayout)
}

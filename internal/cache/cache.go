package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/groland11/nagios-check-security-updates/internal/logging"
)

const (
	// unknownSentinel marks an advisory whose release date could not be
	// determined; its presence suppresses repeated external lookups.
	unknownSentinel = "None"

	// RetentionDays is how long a record survives before compaction drops it.
	RetentionDays = 365

	dateLayout = "2006-01-02"
)

// Store is a flat-file map from advisory identifier to release date.
// Rows are CSV `identifier,date-or-None`. Writes append; duplicates are
// possible and the earliest appended row wins on lookup. The file is
// opened and closed per operation, no locking (single probe run assumed).
type Store struct {
	path string
	log  *slog.Logger
}

// New creates a Store backed by the given file. A nil logger falls back to
// the component default.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.L("cache")
	}
	return &Store{path: path, log: logger}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup scans the file for the first row matching id. found reports whether
// any row matched; date is nil for the unknown sentinel. Read errors are
// logged and treated as a miss.
func (s *Store) Lookup(id string) (found bool, date *time.Time) {
	f, err := os.Open(s.path)
	if err != nil {
		// Missing on first run is the normal case.
		s.log.Debug("cache not readable", "file", s.path, logging.KeyError, err)
		return false, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("cache read aborted", "file", s.path, logging.KeyError, err)
			}
			return false, nil
		}
		if len(row) < 2 || row[0] != id {
			continue
		}
		if row[1] == unknownSentinel {
			return true, nil
		}
		d, perr := time.Parse(dateLayout, row[1])
		if perr != nil {
			s.log.Warn("cache row has unparseable date", logging.KeyPatch, id, "value", row[1])
			return false, nil
		}
		return true, &d
	}
}

// Record appends one row for id. A nil date is stored as the unknown
// sentinel. Failure to write is an error for the caller to log; the
// in-memory result of the current run is unaffected.
func (s *Store) Record(id string, date *time.Time) error {
	value := unknownSentinel
	if date != nil {
		value = date.Format(dateLayout)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open cache file %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{id, value}); err != nil {
		return fmt.Errorf("write cache file %s: %w", s.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush cache file %s: %w", s.path, err)
	}
	return nil
}

// Compact rewrites the file, dropping records older than RetentionDays and
// collapsing duplicate identifiers (last row wins within the pass). Records
// whose date cannot be parsed, including the unknown sentinel, are kept as a
// conservative fallback. Survivors are written most-recent-first.
func (s *Store) Compact() error {
	records, err := s.readAll()
	if err != nil {
		return fmt.Errorf("read error while compacting cache file %s: %w", s.path, err)
	}

	type entry struct {
		id   string
		raw  string
		date time.Time // zero when unparseable
	}

	now := time.Now().UTC()
	entries := make([]entry, 0, len(records))
	for id, raw := range records {
		e := entry{id: id, raw: raw}
		if d, perr := time.Parse(dateLayout, raw); perr == nil {
			e.date = d
			if now.Sub(d) >= RetentionDays*24*time.Hour {
				s.log.Debug("removing expired cache record", logging.KeyPatch, id, "date", raw)
				continue
			}
		}
		entries = append(entries, e)
	}

	// Most recent first; undated records sort as current.
	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].date, entries[j].date
		if di.IsZero() {
			di = now
		}
		if dj.IsZero() {
			dj = now
		}
		if di.Equal(dj) {
			return entries[i].id < entries[j].id
		}
		return di.After(dj)
	})

	f, err := os.OpenFile(s.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("write error while compacting cache file %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, e := range entries {
		if err := w.Write([]string{e.id, e.raw}); err != nil {
			return fmt.Errorf("write error while compacting cache file %s: %w", s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write error while compacting cache file %s: %w", s.path, err)
	}
	return nil
}

// readAll loads every row into a map, so within one compaction pass the last
// duplicate wins (lookup order outside compaction still favors the first).
func (s *Store) readAll() (map[string]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records := make(map[string]string)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		records[row[0]] = row[1]
	}
	return records, nil
}

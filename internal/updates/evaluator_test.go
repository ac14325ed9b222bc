package updates

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func dateDaysAgo(days int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestCachedDateShortCircuitsDetailLookup(t *testing.T) {
	store := testStore(t)
	released := dateDaysAgo(10)
	if err := store.Record("FEDORA-2024-0100", &released); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	src := &fakeSource{lines: []string{"FEDORA-2024-0100 Moderate/Sec. libbaz-3.0-1.x86_64"}}
	c := NewChecker(src, store, Options{})
	mustRun(t, c)

	if src.totalDescribes() != 0 {
		t.Fatalf("cached advisory must not trigger a detail lookup, got %d", src.totalDescribes())
	}
	want := released.AddDate(0, 0, 90)
	if c.NextPatchDate() == nil || !c.NextPatchDate().Equal(want) {
		t.Fatalf("expiration = %v, want %v", c.NextPatchDate(), want)
	}
}

func TestNegativeCacheEntrySkipsDetailLookup(t *testing.T) {
	store := testStore(t)
	if err := store.Record("FEDORA-2024-0101", nil); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	src := &fakeSource{lines: []string{"FEDORA-2024-0101 Low/Sec. libqux-1.0-1.x86_64"}}
	c := NewChecker(src, store, Options{})
	mustRun(t, c)

	if src.totalDescribes() != 0 {
		t.Fatalf("negative cache entry must suppress the detail lookup")
	}
	if c.NextPatchDate() != nil {
		t.Fatalf("unknown release date must not contribute an expiration, got %v", c.NextPatchDate())
	}
	if res := c.Report(); res.Verdict != VerdictOK {
		t.Fatalf("verdict = %v, want OK", res.Verdict)
	}
}

func TestCacheMissRecordsResolvedDate(t *testing.T) {
	store := testStore(t)
	src := &fakeSource{
		lines:  []string{"FEDORA-2024-0102 Important/Sec. libfoo-1.2-1.x86_64"},
		detail: map[string][]string{"FEDORA-2024-0102": releasedDaysAgo(7)},
	}
	c := NewChecker(src, store, Options{})
	mustRun(t, c)

	if src.describeCalls["FEDORA-2024-0102"] != 1 {
		t.Fatalf("expected exactly one detail lookup, got %d", src.describeCalls["FEDORA-2024-0102"])
	}

	found, date := store.Lookup("FEDORA-2024-0102")
	if !found || date == nil {
		t.Fatalf("resolved date should be cached: found=%v date=%v", found, date)
	}
	if !date.Equal(dateDaysAgo(7)) {
		t.Fatalf("cached date = %v, want %v", date, dateDaysAgo(7))
	}
}

func TestCacheMissWithoutTimestampRecordsUnknown(t *testing.T) {
	store := testStore(t)
	src := &fakeSource{
		lines:  []string{"FEDORA-2024-0103 Important/Sec. libbar-2.0-1.x86_64"},
		detail: map[string][]string{"FEDORA-2024-0103": {"  Type : security", "  no dates here"}},
	}
	c := NewChecker(src, store, Options{})
	mustRun(t, c)

	found, date := store.Lookup("FEDORA-2024-0103")
	if !found || date != nil {
		t.Fatalf("expected negative cache entry: found=%v date=%v", found, date)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if !strings.Contains(string(data), "FEDORA-2024-0103,None") {
		t.Fatalf("expected sentinel row, got: %s", data)
	}
}

// A second run over the same inputs must classify identically and add no
// detail lookups: the only side effect of the first run is the cache append.
func TestSecondRunIsIdempotentAndCacheBacked(t *testing.T) {
	store := testStore(t)
	lines := []string{"FEDORA-2024-0104 Critical/Sec. mypkg-1.0-1.x86_64"}
	detail := map[string][]string{"FEDORA-2024-0104": releasedDaysAgo(40)}

	first := NewChecker(&fakeSource{lines: lines, detail: detail}, store, Options{})
	mustRun(t, first)

	secondSrc := &fakeSource{lines: lines, detail: detail}
	second := NewChecker(secondSrc, store, Options{})
	mustRun(t, second)

	if secondSrc.totalDescribes() != 0 {
		t.Fatalf("second run must be served from cache, got %d lookups", secondSrc.totalDescribes())
	}
	if first.Report().Message != second.Report().Message {
		t.Fatalf("runs disagree: %q vs %q", first.Report().Message, second.Report().Message)
	}
}

func TestExpirationBoundary(t *testing.T) {
	// Released exactly SLA days ago: today equals the deadline, expired.
	store := testStore(t)
	onBoundary := dateDaysAgo(30)
	if err := store.Record("FEDORA-2024-0105", &onBoundary); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	c := NewChecker(&fakeSource{}, store, Options{})

	expired, deadline, err := c.evaluate(context.Background(), "FEDORA-2024-0105 Critical/Sec. edge-1.0-1.x86_64", 30)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !expired {
		t.Fatalf("advisory released exactly 30 days ago must be expired")
	}
	if deadline == nil || !deadline.Equal(today()) {
		t.Fatalf("deadline = %v, want today", deadline)
	}

	// One day younger: not yet expired.
	store2 := testStore(t)
	younger := dateDaysAgo(29)
	if err := store2.Record("FEDORA-2024-0106", &younger); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	c2 := NewChecker(&fakeSource{}, store2, Options{})

	expired, deadline, err = c2.evaluate(context.Background(), "FEDORA-2024-0106 Critical/Sec. edge-1.1-1.x86_64", 30)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if expired {
		t.Fatalf("advisory released 29 days ago must not be expired")
	}
	if deadline == nil || !deadline.Equal(today().AddDate(0, 0, 1)) {
		t.Fatalf("deadline = %v, want tomorrow", deadline)
	}
}

func TestDetailFailureAbortsRun(t *testing.T) {
	src := &fakeSource{
		lines:       []string{"FEDORA-2024-0107 Important/Sec. libfoo-1.2-1.x86_64"},
		describeErr: os.ErrPermission,
	}
	c := NewChecker(src, testStore(t), Options{})

	if err := c.Run(context.Background()); err == nil {
		t.Fatalf("detail command failure must abort the run")
	}
}

func TestFirstReleaseDateParsesUpdatedAndIssued(t *testing.T) {
	got := firstReleaseDate(slog.Default(), []string{
		"  Severity : Important",
		"  Issued : 2024-03-05 09:15:00",
		"  Updated : 2024-04-01 10:00:00",
	})
	if got == nil {
		t.Fatalf("expected a parsed date")
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("first matching line wins: got %v, want %v", got, want)
	}

	if d := firstReleaseDate(slog.Default(), []string{"nothing useful"}); d != nil {
		t.Fatalf("expected nil for output without timestamps, got %v", d)
	}
}

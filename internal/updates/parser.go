package updates

import "regexp"

// Patterns over `yum updateinfo list` output, applied in order. The four
// severity checks are deliberately independent: a single line may populate
// more than one bucket if it carries more than one marker.
var (
	// kernelRe matches kernel advisories, skipped when live patching makes
	// reboot-requiring kernel updates irrelevant.
	kernelRe = regexp.MustCompile(`/Sec\.\s*(kernel.*)`)

	// alwaysCriticalRe matches browser packages that are surfaced as
	// critical regardless of advisory severity or age.
	alwaysCriticalRe = regexp.MustCompile(`\s*(firefox.*|chrom.*)`)

	criticalRe  = regexp.MustCompile(`Critical/Sec\.\s*(.*)$`)
	importantRe = regexp.MustCompile(`Important/Sec\.\s*(.*)$`)
	moderateRe  = regexp.MustCompile(`Moderate/Sec\.\s*(.*)$`)
	lowRe       = regexp.MustCompile(`Low/Sec\.\s*(.*)$`)

	// identifierRe isolates the advisory identifier: the first
	// whitespace-delimited token of the line.
	identifierRe = regexp.MustCompile(`^(\S+)\s`)

	// releaseRe matches the release-timestamp line of `yum updateinfo info`.
	releaseRe = regexp.MustCompile(`^\s*(Updated|Issued)\s*:\s*(\d+-\d+-\d+ \d+:\d+:\d+)`)
)

type severityRule struct {
	re  *regexp.Regexp
	sev Severity
}

var severityRules = []severityRule{
	{criticalRe, SeverityCritical},
	{importantRe, SeverityImportant},
	{moderateRe, SeverityModerate},
	{lowRe, SeverityLow},
}

package updates

import (
	"context"
	"slices"

	"github.com/groland11/nagios-check-security-updates/internal/executor"
)

// Source produces the raw advisory inventory and per-advisory detail text.
type Source interface {
	// List returns the pending-updates inventory, one advisory per line.
	List(ctx context.Context) ([]string, error)
	// Describe returns the detail text for one advisory identifier.
	Describe(ctx context.Context, id string) ([]string, error)
}

// YumSource drives a yum/dnf-compatible package manager CLI.
type YumSource struct {
	runner  *executor.Runner
	listCmd []string
	infoCmd []string
}

func NewYumSource(runner *executor.Runner, listCmd, infoCmd []string) *YumSource {
	return &YumSource{
		runner:  runner,
		listCmd: listCmd,
		infoCmd: infoCmd,
	}
}

func (s *YumSource) List(ctx context.Context) ([]string, error) {
	return s.runner.Run(ctx, s.listCmd)
}

func (s *YumSource) Describe(ctx context.Context, id string) ([]string, error) {
	return s.runner.Run(ctx, append(slices.Clone(s.infoCmd), id))
}

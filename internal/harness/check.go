package harness

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/techblog-io/blog-smoke/internal/browser"
	"github.com/techblog-io/blog-smoke/internal/config"
)

// Visit is what a predicate sees: the page the harness just navigated to.
type Visit struct {
	Session  browser.Session
	Config   config.Config
	URL      string
	LoadTime time.Duration
}

// Predicate asserts one fact about the visited page. On success it returns
// a short detail for the log line (title, URL, timing).
type Predicate func(ctx context.Context, v *Visit) (string, error)

// Check is one independent read-only assertion against the application.
type Check struct {
	Priority    int
	Description string
	// Expectation is the failure message reported when the check does not hold.
	Expectation string
	// Path is navigated relative to the base URL; empty means the base URL.
	Path      string
	Predicate Predicate
}

// Outcome is the single result recorded for a check in a run.
type Outcome struct {
	Priority    int           `json:"priority" yaml:"priority"`
	Description string        `json:"description" yaml:"description"`
	Passed      bool          `json:"passed" yaml:"passed"`
	Message     string        `json:"message" yaml:"message"`
	Kind        Kind          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Cause       string        `json:"cause,omitempty" yaml:"cause,omitempty"`
	URL         string        `json:"url,omitempty" yaml:"url,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Screenshot  string        `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
}

// SortChecks returns a copy of checks ordered by priority.
func SortChecks(checks []Check) []Check {
	ordered := make([]Check, len(checks))
	copy(ordered, checks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// ValidateChecks rejects duplicate priorities and checks without a predicate.
func ValidateChecks(checks []Check) error {
	seen := make(map[int]string, len(checks))
	for _, c := range checks {
		if c.Predicate == nil {
			return fmt.Errorf("check %d (%s) has no predicate", c.Priority, c.Description)
		}
		if prev, ok := seen[c.Priority]; ok {
			return fmt.Errorf("%w: %d used by %q and %q", ErrDuplicatePriority, c.Priority, prev, c.Description)
		}
		seen[c.Priority] = c.Description
	}
	return nil
}

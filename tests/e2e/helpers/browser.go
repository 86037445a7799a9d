package helpers

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/techblog-io/blog-smoke/internal/browser"
	"github.com/techblog-io/blog-smoke/internal/config"
	"github.com/techblog-io/blog-smoke/internal/harness"
	e2econfig "github.com/techblog-io/blog-smoke/tests/e2e/config"
)

// BrowserHelper owns a harness and its live browser session for one test.
type BrowserHelper struct {
	Harness *harness.Harness
	Session *harness.Session
	Config  config.Config
	t       *testing.T
}

// NewBrowserHelper builds a harness against the real Playwright launcher.
// The test is skipped when SKIP_BROWSER=true.
func NewBrowserHelper(t *testing.T, cfg config.Config) *BrowserHelper {
	t.Helper()
	if e2econfig.SkipBrowser() {
		t.Skip("SKIP_BROWSER=true")
	}
	logger := log.New(os.Stderr, "[SMOKE] ", log.LstdFlags)
	return &BrowserHelper{
		Harness: harness.New(cfg, browser.NewPlaywright(cfg.SkipInstall), harness.WithLogger(logger)),
		Config:  cfg,
		t:       t,
	}
}

// Setup launches the browser. A machine without a usable Chromium skips the
// test rather than failing it.
func (b *BrowserHelper) Setup(ctx context.Context) {
	b.t.Helper()
	s, err := b.Harness.SetUp(ctx)
	if err != nil {
		if errors.Is(err, harness.ErrSetupFailure) {
			b.t.Skipf("browser unavailable: %v", err)
		}
		b.t.Fatalf("setup: %v", err)
	}
	b.Session = s
	b.t.Cleanup(b.TearDown)
}

// TearDown closes the session; safe to call more than once.
func (b *BrowserHelper) TearDown() {
	if err := b.Harness.TearDown(b.Session); err != nil {
		b.t.Logf("teardown: %v", err)
	}
}

// Run executes checks on the open session in priority order.
func (b *BrowserHelper) Run(ctx context.Context, checks []harness.Check) map[int]harness.Outcome {
	b.t.Helper()
	out := make(map[int]harness.Outcome, len(checks))
	for _, c := range harness.SortChecks(checks) {
		o := b.Harness.RunCheck(ctx, b.Session, c)
		b.t.Logf("check %d passed=%v: %s %s", o.Priority, o.Passed, o.Message, o.Cause)
		out[o.Priority] = o
	}
	return out
}

// Check returns the check with the given priority.
func Check(t *testing.T, checks []harness.Check, priority int) harness.Check {
	t.Helper()
	for _, c := range checks {
		if c.Priority == priority {
			return c
		}
	}
	t.Fatalf("no check with priority %d", priority)
	return harness.Check{}
}

// Package harness runs an ordered list of independent page checks against
// one browser session.
package harness

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techblog-io/blog-smoke/internal/browser"
	"github.com/techblog-io/blog-smoke/internal/config"
)

// Session is the harness-owned handle to one browser. It is released exactly
// once no matter how often TearDown is called.
type Session struct {
	drv  browser.Session
	once sync.Once
	err  error

	mu     sync.Mutex
	closed bool
}

// NewSession wraps a driver session.
func NewSession(drv browser.Session) *Session {
	return &Session{drv: drv}
}

// Driver exposes the underlying browser session.
func (s *Session) Driver() browser.Session {
	return s.drv
}

// Closed reports whether the session has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) release() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.drv != nil {
			s.err = s.drv.Quit()
		}
	})
	return s.err
}

// Result is the record of one suite run.
type Result struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	BaseURL    string    `json:"base_url" yaml:"base_url"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Passed counts passing outcomes
func (r *Result) Passed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Passed {
			n++
		}
	}
	return n
}

// Failed counts failing outcomes
func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Passed()
}

// OK reports whether every check passed.
func (r *Result) OK() bool {
	return r.Failed() == 0
}

// Harness acquires a browser, runs checks against it and releases it.
type Harness struct {
	cfg      config.Config
	launcher browser.Launcher
	logger   *log.Logger
	now      func() time.Time
}

// Option customises a Harness.
type Option func(*Harness)

// WithLogger replaces the default stdout logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a harness for cfg using launcher to start browsers.
func New(cfg config.Config, launcher browser.Launcher, opts ...Option) *Harness {
	h := &Harness{
		cfg:      cfg,
		launcher: launcher,
		logger:   log.New(os.Stdout, "[SMOKE] ", log.LstdFlags),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Config returns the configuration the harness was built with.
func (h *Harness) Config() config.Config {
	return h.cfg
}

// SetUp launches the headless browser. Any error is a SetupFailure and the
// suite cannot proceed.
func (h *Harness) SetUp(ctx context.Context) (*Session, error) {
	w, ht := h.cfg.WindowSize.Width, h.cfg.WindowSize.Height
	drv, err := h.launcher.Launch(ctx, browser.Options{
		Headless: h.cfg.Headless,
		Width:    w,
		Height:   ht,
		Timeout:  h.cfg.NavTimeout,
		// A page slower than the load budget but within this bound fails check 7 only.
		PageLoadTimeout: h.cfg.PageLoadTimeout,
		Args:            browser.DefaultArgs(w, ht),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailure, err)
	}
	if drv == nil {
		return nil, fmt.Errorf("%w: launcher returned no session", ErrSetupFailure)
	}
	h.logger.Printf("Testing application at: %s", h.cfg.BaseURL)
	return NewSession(drv), nil
}

// TearDown releases the browser. It is a no-op for a nil session and safe to
// call more than once.
func (h *Harness) TearDown(s *Session) error {
	if s == nil {
		return nil
	}
	alreadyClosed := s.Closed()
	if err := s.release(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	if !alreadyClosed {
		h.logger.Println("Browser closed successfully")
	}
	return nil
}

// RunCheck navigates to the check's target and evaluates its predicate.
// Every failure, including driver errors and panics, becomes a failed
// Outcome; nothing propagates past this call.
func (h *Harness) RunCheck(ctx context.Context, s *Session, c Check) (out Outcome) {
	start := h.now()
	out = Outcome{
		Priority:    c.Priority,
		Description: c.Description,
		URL:         h.cfg.URLFor(c.Path),
	}
	defer func() {
		if r := recover(); r != nil {
			h.fail(s, c, &out, &AssertionError{
				Kind:    KindAssertionFailed,
				Message: c.Expectation,
				Err:     fmt.Errorf("panic: %v", r),
			})
		}
		out.Duration = h.now().Sub(start)
	}()

	if s == nil || s.Closed() {
		h.fail(s, c, &out, asAssertion(c, browser.ErrSessionClosed))
		return out
	}
	if c.Predicate == nil {
		h.fail(s, c, &out, asAssertion(c, fmt.Errorf("check has no predicate")))
		return out
	}

	navStart := h.now()
	err := s.drv.Navigate(ctx, out.URL)
	loadTime := h.now().Sub(navStart)
	if err != nil {
		h.fail(s, c, &out, asAssertion(c, err))
		return out
	}

	detail, err := c.Predicate(ctx, &Visit{
		Session:  s.drv,
		Config:   h.cfg,
		URL:      out.URL,
		LoadTime: loadTime,
	})
	if err != nil {
		h.fail(s, c, &out, asAssertion(c, err))
		return out
	}

	out.Passed = true
	out.Message = detail
	return out
}

func (h *Harness) fail(s *Session, c Check, out *Outcome, ae *AssertionError) {
	out.Passed = false
	out.Kind = ae.Kind
	out.Message = ae.Message
	out.Cause = ""
	if ae.Err != nil {
		out.Cause = ae.Err.Error()
	}
	if h.cfg.Screenshots && s != nil && !s.Closed() {
		out.Screenshot = h.screenshot(s, c)
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func (h *Harness) screenshot(s *Session, c Check) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(c.Description), "-"), "-")
	path := filepath.Join(h.cfg.ScreenshotDir, fmt.Sprintf("check-%02d-%s.png", c.Priority, slug))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.logger.Printf("screenshot dir %s: %v", filepath.Dir(path), err)
		return ""
	}
	if err := s.drv.Screenshot(path); err != nil {
		h.logger.Printf("screenshot for check %d failed: %v", c.Priority, err)
		return ""
	}
	return path
}

// Run executes checks in priority order against a single session. The
// returned error is non-nil only when the checks are malformed or SetUp
// failed; check failures are reported in the Result.
func (h *Harness) Run(ctx context.Context, checks []Check) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		BaseURL:   h.cfg.BaseURL,
		StartedAt: h.now(),
	}
	if err := ValidateChecks(checks); err != nil {
		res.FinishedAt = h.now()
		return res, err
	}

	s, err := h.SetUp(ctx)
	if err != nil {
		res.FinishedAt = h.now()
		return res, err
	}
	defer func() {
		if err := h.TearDown(s); err != nil {
			h.logger.Printf("Error closing browser: %v", err)
		}
	}()

	for _, c := range SortChecks(checks) {
		out := h.RunCheck(ctx, s, c)
		h.logOutcome(out)
		res.Outcomes = append(res.Outcomes, out)
	}
	res.FinishedAt = h.now()
	h.logger.Printf("Run %s finished: %d passed, %d failed", res.RunID, res.Passed(), res.Failed())
	return res, nil
}

func (h *Harness) logOutcome(out Outcome) {
	if out.Passed {
		h.logger.Printf("✓ Check %d passed: %s", out.Priority, out.Message)
		return
	}
	if out.Cause != "" {
		h.logger.Printf("✗ Check %d failed: %s (%s)", out.Priority, out.Message, out.Cause)
		return
	}
	h.logger.Printf("✗ Check %d failed: %s", out.Priority, out.Message)
}

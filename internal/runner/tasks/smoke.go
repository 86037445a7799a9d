package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/techblog-io/blog-smoke/internal/browser"
	"github.com/techblog-io/blog-smoke/internal/config"
	"github.com/techblog-io/blog-smoke/internal/harness"
	"github.com/techblog-io/blog-smoke/internal/metrics"
	"github.com/techblog-io/blog-smoke/internal/runner"
)

// TaskName identifies the smoke suite in the runner registry.
const TaskName = "blog-smoke"

// minTimeout is the floor for a whole-suite timeout.
const minTimeout = time.Minute

// SmokeTask runs the smoke suite against the deployment on a schedule.
type SmokeTask struct {
	config   func() config.Config
	launcher browser.Launcher
	recorder *metrics.Recorder
	logger   *log.Logger

	// OnResult, when set, receives every completed run.
	OnResult func(*harness.Result)
}

// NewSmokeTask creates the scheduled smoke task. cfg is called at the start
// of every run so reloaded configuration takes effect on the next tick.
func NewSmokeTask(cfg func() config.Config, launcher browser.Launcher, recorder *metrics.Recorder) *SmokeTask {
	return &SmokeTask{
		config:   cfg,
		launcher: launcher,
		recorder: recorder,
		logger:   log.New(log.Writer(), "[SMOKE-TASK] ", log.LstdFlags),
	}
}

var _ runner.Task = (*SmokeTask)(nil)

// SetLogger redirects task output.
func (t *SmokeTask) SetLogger(l *log.Logger) {
	t.logger = l
}

// Name returns the task name
func (t *SmokeTask) Name() string {
	return TaskName
}

// Schedule returns the configured watch schedule.
func (t *SmokeTask) Schedule() string {
	if s := t.config().Watch.Schedule; s != "" {
		return s
	}
	return config.DefaultSchedule
}

// Timeout allows every check, plus browser launch, one full navigation and
// one explicit wait, with a floor.
func (t *SmokeTask) Timeout() time.Duration {
	cfg := t.config()
	d := time.Duration(len(harness.ChecksFor(cfg.Extended))+1) * (cfg.PageLoadTimeout + cfg.NavTimeout)
	if d < minTimeout {
		return minTimeout
	}
	return d
}

// Run executes one suite run, records metrics and pushes them when a
// Pushgateway is configured. It returns an error when setup fails or any
// check fails.
func (t *SmokeTask) Run(ctx context.Context) error {
	cfg := t.config()
	h := harness.New(cfg, t.launcher, harness.WithLogger(t.logger))

	res, err := h.Run(ctx, harness.ChecksFor(cfg.Extended))

	if t.recorder != nil {
		t.recorder.Observe(res, err)
		if cfg.Metrics.PushgatewayURL != "" {
			if perr := t.recorder.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.BaseURL); perr != nil {
				t.logger.Printf("Warning: %v", perr)
			}
		}
	}
	if err != nil {
		return err
	}
	if t.OnResult != nil {
		t.OnResult(res)
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d checks failed", res.Failed(), len(res.Outcomes))
	}
	return nil
}

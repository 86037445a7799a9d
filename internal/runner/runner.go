package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/techblog-io/blog-smoke/internal/config"
)

// Runner executes registered tasks on their cron schedules. A task never
// overlaps itself: the immediate run and every tick go through the same
// skip-if-still-running job.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]entry
}

// entry is a task's live cron registration. job is created once per task and
// survives reschedules.
type entry struct {
	id   cron.EntryID
	spec string
	job  cron.Job
}

// NewRunner creates a new task runner
func NewRunner(registry *TaskRegistry) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithParser(config.ScheduleParser)),
		registry: registry,
		logger:   log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
		entries:  make(map[string]entry),
	}
}

// SetLogger redirects runner output.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Start schedules every task and blocks until ctx ends or SIGINT/SIGTERM
// arrives. Signals are handled from the first instruction, so a run in
// progress is cancelled and its browser released. With runNow set each task
// also runs once immediately. A signal yields a nil error.
func (r *Runner) Start(ctx context.Context, runNow bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	received := make(chan os.Signal, 1)
	go func() {
		select {
		case sig := <-sigChan:
			received <- sig
			cancel()
		case <-ctx.Done():
		}
	}()

	r.logger.Println("Starting smoke runner...")
	if err := r.scheduleAll(ctx); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Println("Smoke runner started successfully")

	if runNow {
		for _, task := range r.registry.All() {
			if ctx.Err() != nil {
				break
			}
			if job := r.jobFor(task.Name()); job != nil {
				job.Run()
			}
		}
	}

	<-ctx.Done()
	r.Stop()

	select {
	case sig := <-received:
		r.logger.Printf("Received signal: %v", sig)
		return nil
	default:
		r.logger.Println("Context cancelled")
		return ctx.Err()
	}
}

func (r *Runner) scheduleAll(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	for _, task := range r.registry.All() {
		if err := r.schedule(task); err != nil {
			return err
		}
	}
	return nil
}

// schedule adds task to cron, or moves its entry when the spec changed.
func (r *Runner) schedule(task Task) error {
	spec := task.Schedule()
	sched, err := config.ScheduleParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", task.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[task.Name()]
	switch {
	case exists && e.spec == spec:
		return nil
	case exists:
		r.cron.Remove(e.id)
		r.logger.Printf("Rescheduling task: %s from %s to %s", task.Name(), e.spec, spec)
	default:
		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		e.job = cron.NewChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.logger))).
			Then(cron.FuncJob(func() { _ = r.executeTask(ctx, task) }))
		r.logger.Printf("Registering task: %s with schedule: %s", task.Name(), spec)
	}

	e.id = r.cron.Schedule(sched, e.job)
	e.spec = spec
	r.entries[task.Name()] = e
	return nil
}

// Reschedule re-reads the named task's schedule and moves its cron entry if
// the spec changed. An invalid spec keeps the current entry.
func (r *Runner) Reschedule(name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	if r.jobFor(name) == nil {
		return fmt.Errorf("task %s is not scheduled", name)
	}
	return r.schedule(task)
}

func (r *Runner) jobFor(name string) cron.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.job
	}
	return nil
}

// RunOnce executes the named task immediately, outside the schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return r.executeTask(ctx, task)
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) error {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	r.logger.Printf("Executing task: %s", task.Name())

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Printf("Task %s failed after %v: %v", task.Name(), duration, err)
	} else {
		r.logger.Printf("Task %s completed successfully in %v", task.Name(), duration)
	}
	return err
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Println("Stopping smoke runner...")

		// Stop accepting new ticks, then wait for running tasks.
		ctx := r.cron.Stop()
		r.wg.Wait()
		<-ctx.Done()

		r.logger.Println("Smoke runner stopped")
	})
}

package runner

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task is a unit of scheduled work, such as one full smoke suite.
type Task interface {
	// Name keys the task in the registry and in log lines.
	Name() string

	// Schedule is a cron spec or descriptor understood by
	// config.ScheduleParser. It is read when the task is scheduled and again
	// on Runner.Reschedule.
	Schedule() string

	// Run performs one execution. Returning an error marks the run failed;
	// the schedule keeps going either way.
	Run(ctx context.Context) error

	// Timeout bounds a single Run.
	Timeout() time.Duration
}

// TaskRegistry maps task names to tasks. It is safe for concurrent use, since
// config reloads look tasks up from the file watcher goroutine.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Register adds task, replacing any task with the same name.
func (r *TaskRegistry) Register(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Name()] = task
}

func (r *TaskRegistry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[name]
	return task, ok
}

// All returns the tasks ordered by name, which is also the order of
// immediate runs.
func (r *TaskRegistry) All() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

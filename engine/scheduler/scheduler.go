package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ErrSchedulerClosed is returned by Parallel after Close.
var ErrSchedulerClosed = errors.New("scheduler: closed")

// Task is a unit of import work.
type Task func(ctx context.Context) error

type scheduler struct {
	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration
	closed      atomic.Bool
	nextID      atomic.Int64
}

// Scheduler runs import work either on a worker pool or inline on the caller's goroutine,
// giving other goroutines a chance to run between steps.
//
// One Scheduler may be shared by several importers. Tasks must not call Parallel themselves.
type Scheduler interface {
	// Parallel submits every task to the worker pool and waits for all of them.
	// Tasks that have not started when ctx is done are skipped.
	//
	// Parameters:
	//   - ctx: passed to every task
	//   - tasks: the work to run
	//
	// Returns:
	//   - error: the error of the lowest-indexed failing task, ctx.Err() if tasks were skipped,
	//     or ErrSchedulerClosed
	Parallel(ctx context.Context, tasks ...Task) error

	// Sequential runs the tasks in order on the caller's goroutine, yielding between them.
	// It stops at the first error.
	//
	// Parameters:
	//   - ctx: passed to every task
	//   - tasks: the work to run
	//
	// Returns:
	//   - error: the first task error or ctx.Err()
	Sequential(ctx context.Context, tasks ...Task) error

	// Yield lets other goroutines run and reports whether ctx is done.
	//
	// Parameters:
	//   - ctx: the context to check
	//
	// Returns:
	//   - error: ctx.Err()
	Yield(ctx context.Context) error

	// Workers returns the size of the worker pool.
	//
	// Returns:
	//   - int: the number of pool workers
	Workers() int

	// Close stops the worker pool. Calling Close more than once is a no-op.
	Close()
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler backed by a dynamic worker pool.
// Defaults to one worker per CPU.
//
// Parameters:
//   - options: variadic list of SchedulerBuilderOption functions to configure the scheduler
//
// Returns:
//   - Scheduler: the new scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		workers:     runtime.NumCPU(),
		queueSize:   256,
		idleTimeout: 1 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, s.idleTimeout)
	return s
}

func (s *scheduler) Parallel(ctx context.Context, tasks ...Task) error {
	if s.closed.Load() {
		return ErrSchedulerClosed
	}
	if len(tasks) == 0 {
		return ctx.Err()
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		idx := i
		t := task
		s.pool.SubmitTask(worker.Task{
			ID: int(s.nextID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = run(ctx, t)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scheduler) Sequential(ctx context.Context, tasks ...Task) error {
	for i, t := range tasks {
		if i > 0 {
			if err := s.Yield(ctx); err != nil {
				return err
			}
		}
		if err := run(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *scheduler) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

func (s *scheduler) Workers() int {
	return s.workers
}

func (s *scheduler) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.pool.Stop()
}

// run executes a task unless ctx is already done, converting a panic into an error so a
// failing task cannot take down a pool worker.
func run(ctx context.Context, t Task) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: task panicked: %v", r)
		}
	}()
	return t(ctx)
}

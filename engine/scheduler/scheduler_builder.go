package scheduler

import "time"

// SchedulerBuilderOption is a functional option for configuring a Scheduler during construction.
type SchedulerBuilderOption func(*scheduler)

// WithWorkers sets the number of pool workers.
//
// Parameters:
//   - n: the number of workers, values below 1 are treated as 1
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the workers option to a scheduler
func WithWorkers(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.workers = n
	}
}

// WithQueueSize sets the capacity of the pool's task queue.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - SchedulerBuilderOption: a function that applies the queue size option to a scheduler
func WithQueueSize(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.queueSize = n
	}
}

// WithIdleTimeout sets the pool's worker idle timeout.
func WithIdleTimeout(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.idleTimeout = d
	}
}

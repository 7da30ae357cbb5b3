package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJob is returned when a job has no name, no run func or a non-positive interval
	ErrInvalidJob = errors.New("invalid scheduled job")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrSchedulerRunning is returned when registering on a started scheduler
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")
)

// PanicError wraps a value recovered from a job.
type PanicError struct {
	Job   string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %s panicked: %v", e.Job, e.Value)
}

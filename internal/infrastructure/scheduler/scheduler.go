// Package scheduler runs periodic maintenance jobs such as releasing
// abandoned receipt handles.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the run inherits the scheduler context.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// JobStats is a snapshot of a job's run history.
type JobStats struct {
	Runs      int
	Failures  int
	LastRunAt time.Time
	LastError string
}

// Scheduler runs each registered job on its own ticker.
type Scheduler struct {
	logger *zap.Logger

	jobs   []Job
	stats  map[string]*JobStats
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	now       func() time.Time
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		stats:  make(map[string]*JobStats),
		now:    time.Now,
	}
}

// Register adds a job. Jobs can only be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.stats[job.Name]; exists {
		return ErrDuplicateJob
	}
	s.jobs = append(s.jobs, job)
	s.stats[job.Name] = &JobStats{}
	return nil
}

// Start launches one loop per job. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop cancels all loops and waits for in-flight runs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow executes the named job once, outside its ticker.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var (
		job   Job
		found bool
	)
	for _, j := range s.jobs {
		if j.Name == name {
			job, found = j, true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return ErrJobNotFound
	}
	return s.execute(ctx, job)
}

// Stats returns a copy of the named job's history.
func (s *Scheduler) Stats(name string) (JobStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[name]
	if !ok {
		return JobStats{}, false
	}
	return *st, true
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	err := s.safeRun(runCtx, job)

	s.mu.Lock()
	st := s.stats[job.Name]
	st.Runs++
	st.LastRunAt = s.now()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", job.Name), zap.Error(err))
	}
	return err
}

// safeRun keeps a panicking job from taking the loop down with it.
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Job: job.Name, Value: r}
		}
	}()
	return job.Run(ctx)
}

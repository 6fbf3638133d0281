package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vallemsec/spectra-web/internal/logging"
	"github.com/vallemsec/spectra-web/internal/render"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
	"github.com/vallemsec/spectra-web/internal/target"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// JobStatus is the lifecycle of an asynchronous scan.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Done reports whether the job has settled.
func (s JobStatus) Done() bool {
	return s == JobSuccess || s == JobFailed
}

// Job is an asynchronous scan. Report is set once the job has settled.
type Job struct {
	ID         string         `json:"id"`
	Status     JobStatus      `json:"status"`
	Targets    target.Targets `json:"targets"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Report     *render.Report `json:"report,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// JobRequest is the body of POST /api/v1/scans.
type JobRequest struct {
	Domain string `json:"domain"`
	Email  string `json:"email"`
}

// Runner produces a settled report for a target.
type Runner interface {
	Run(ctx context.Context, t target.Targets) *render.Report
}

// JobManager runs scans in the background and keeps their state in memory.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int // completed jobs beyond this are evicted, oldest first
	closed      bool

	maxRunning int64
	running    *semaphore.Weighted

	runner  Runner
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// JobOption configures a JobManager.
type JobOption func(*JobManager)

// WithMaxRunning caps how many jobs run at once. Further StartJob calls fail
// with ErrTooManyJobs until a running job settles.
func WithMaxRunning(n int) JobOption {
	return func(m *JobManager) {
		if n > 0 {
			m.maxRunning = int64(n)
		}
	}
}

// WithJobTimeout bounds a single job.
func WithJobTimeout(d time.Duration) JobOption {
	return func(m *JobManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewJobManager creates a manager that runs jobs with runner.
func NewJobManager(runner Runner, logger *zap.Logger, opts ...JobOption) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     constants.DefaultMaxJobs,
		maxRunning:  constants.DefaultMaxRunningJobs,
		runner:      runner,
		timeout:     constants.DefaultJobTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.running = semaphore.NewWeighted(m.maxRunning)
	go m.cleanupLoop()
	return m
}

// StartJob registers a pending job for req and runs it in the background.
// The job outlives the request that created it.
func (m *JobManager) StartJob(_ context.Context, req JobRequest) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, sharedErrors.ErrJobManagerClosed
	}
	if !m.running.TryAcquire(1) {
		return nil, fmt.Errorf("%w: limit is %d", sharedErrors.ErrTooManyJobs, m.maxRunning)
	}

	t := target.Targets{Domain: req.Domain, Email: req.Email}
	job := m.createJobLocked(t)

	// Add happens under mu so it never races Close's Wait.
	m.wg.Add(1)
	go m.run(job.ID, t)
	return job, nil
}

// GetJob returns a copy of the job with id.
func (m *JobManager) GetJob(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, fmt.Errorf("%w: %s", sharedErrors.ErrJobNotFound, id)
}

// ListJobs returns up to limit jobs, newest first.
func (m *JobManager) ListJobs(_ context.Context, limit int) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Subscribe returns a channel receiving every job state change and a
// function that unsubscribes and closes it.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 10)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// Wait blocks until every started job has settled.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// Close rejects new jobs, cancels running ones and waits for them or for ctx.
func (m *JobManager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetMaxJobs configures how many jobs are retained in memory.
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}

func (m *JobManager) createJob(t target.Targets) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createJobLocked(t)
}

func (m *JobManager) createJobLocked(t target.Targets) *Job {
	job := &Job{
		ID:        generateID("scan"),
		Status:    JobPending,
		Targets:   t,
		CreatedAt: m.now().UTC(),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) updateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) run(id string, t target.Targets) {
	defer m.wg.Done()
	defer m.running.Release(1)

	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()
	logger := m.logger.With(zap.String("job_id", id))
	ctx = logging.NewContext(ctx, logger)

	m.updateJob(id, func(j *Job) {
		now := m.now().UTC()
		j.Status = JobRunning
		j.StartedAt = &now
	})

	rep := m.runner.Run(ctx, t)

	job := m.updateJob(id, func(j *Job) {
		now := m.now().UTC()
		j.FinishedAt = &now
		j.Report = rep
		j.Status = JobSuccess
		if rep.Failed() {
			j.Status = JobFailed
			j.Error = "one or more sections failed"
		}
	})
	if job != nil {
		logger.Info("scan_job_finished", zap.String("status", string(job.Status)))
	}
}

func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			m.logger.Debug("scan_job_update_dropped", zap.String("job_id", job.ID))
		}
	}
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func (m *JobManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evict()
		}
	}
}

// evict drops the oldest settled jobs while more than maxJobs are held.
func (m *JobManager) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) <= m.maxJobs {
		return
	}

	type settled struct {
		id       string
		finished time.Time
	}
	var done []settled
	for id, job := range m.jobs {
		if !job.Status.Done() || job.FinishedAt == nil {
			continue
		}
		done = append(done, settled{id: id, finished: *job.FinishedAt})
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].finished.Before(done[j].finished)
	})

	toRemove := min(len(m.jobs)-m.maxJobs, len(done))
	for i := range toRemove {
		delete(m.jobs, done[i].id)
	}
}

package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/export"
)

// minCleanupInterval bounds how often the cleanup loop wakes up.
const minCleanupInterval = time.Second

// JobStatus represents the status of a file export job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusSuccess  JobStatus = "success"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCanceled
}

// Job is a snapshot of a file export.
type Job struct {
	ID          string
	Status      JobStatus
	SQLText     string
	FileName    string
	CreatedOn   time.Time
	CompletedOn *time.Time
	Result      *export.FileResult
	Err         error
}

type jobEntry struct {
	Job
	cancelFunc context.CancelFunc
	done       chan struct{} // closed once the status is final
}

// JobManager tracks file exports by id with thread safety. Finished jobs are dropped
// once they have been complete for longer than the TTL.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
	ttl  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	running  sync.WaitGroup
}

// NewJobManager creates a new job manager and starts its cleanup loop. A non-positive
// ttl selects the default.
func NewJobManager(ttl time.Duration) *JobManager {
	if ttl <= 0 {
		ttl = config.DefaultJobTTL
	}
	jm := &JobManager{
		jobs: make(map[string]*jobEntry),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go jm.cleanupLoop()
	return jm
}

// Create registers a pending job and returns its snapshot. An empty fileName names the
// file after the job id.
func (jm *JobManager) Create(sqlText, fileName string) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	id := uuid.New().String()
	if fileName == "" {
		fileName = id + ".csv"
	}
	entry := &jobEntry{
		Job: Job{
			ID:        id,
			Status:    JobStatusPending,
			SQLText:   sqlText,
			FileName:  fileName,
			CreatedOn: time.Now(),
		},
		done: make(chan struct{}),
	}
	jm.jobs[entry.ID] = entry
	return entry.Job
}

// Get retrieves a job by id.
func (jm *JobManager) Get(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	entry, ok := jm.jobs[id]
	if !ok {
		return Job{}, false
	}
	return entry.Job, true
}

// Start marks a pending job as running. cancel is called when the job is canceled.
func (jm *JobManager) Start(id string, cancel context.CancelFunc) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	entry, ok := jm.jobs[id]
	if !ok || entry.Status != JobStatusPending {
		return false
	}
	entry.Status = JobStatusRunning
	entry.cancelFunc = cancel
	return true
}

// Finish records the outcome of a job. A job that already finished, including a
// canceled one, keeps its status.
func (jm *JobManager) Finish(id string, res *export.FileResult, err error) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	entry, ok := jm.jobs[id]
	if !ok {
		return false
	}
	entry.cancelFunc = nil
	if entry.Status.Done() {
		return true
	}

	if err != nil {
		entry.Status = JobStatusFailed
		entry.Err = err
	} else {
		entry.Status = JobStatusSuccess
		entry.Result = res
	}
	now := time.Now()
	entry.CompletedOn = &now
	close(entry.done)
	return true
}

// Go starts fn for a pending job in the background. The context handed to fn is
// canceled by Cancel and Close.
func (jm *JobManager) Go(id string, fn func(ctx context.Context) (*export.FileResult, error)) bool {
	ctx, cancel := context.WithCancel(context.Background())
	if !jm.Start(id, cancel) {
		cancel()
		return false
	}

	jm.running.Add(1)
	go func() {
		defer jm.running.Done()
		defer cancel()
		res, err := fn(ctx)
		jm.Finish(id, res, err)
	}()
	return true
}

// Wait blocks until the job is finished or ctx is done.
func (jm *JobManager) Wait(ctx context.Context, id string) (Job, error) {
	jm.mu.RLock()
	entry, ok := jm.jobs[id]
	jm.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("export job not found: %s", id)
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}

	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return entry.Job, nil
}

// Cancel cancels a pending or running job.
func (jm *JobManager) Cancel(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	entry, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("export job not found: %s", id)
	}

	if entry.Status.Done() {
		return fmt.Errorf("export job %s is not running (status: %s)", id, entry.Status)
	}

	jm.cancelLocked(entry)
	return nil
}

func (jm *JobManager) cancelLocked(entry *jobEntry) {
	if entry.cancelFunc != nil {
		entry.cancelFunc()
		entry.cancelFunc = nil
	}
	entry.Status = JobStatusCanceled
	now := time.Now()
	entry.CompletedOn = &now
	close(entry.done)
}

// Delete removes a job from the manager.
func (jm *JobManager) Delete(id string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.jobs, id)
}

// Close cancels every unfinished job, waits for background exports to return and stops
// the cleanup loop.
func (jm *JobManager) Close() {
	jm.stopOnce.Do(func() {
		close(jm.stop)

		jm.mu.Lock()
		for _, entry := range jm.jobs {
			if !entry.Status.Done() {
				jm.cancelLocked(entry)
			}
		}
		jm.mu.Unlock()
	})
	jm.running.Wait()
}

// cleanupLoop periodically removes expired jobs.
func (jm *JobManager) cleanupLoop() {
	ticker := time.NewTicker(max(jm.ttl/2, minCleanupInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jm.cleanup(time.Now())
		case <-jm.stop:
			return
		}
	}
}

// cleanup removes jobs that have been completed for longer than TTL.
func (jm *JobManager) cleanup(now time.Time) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for id, entry := range jm.jobs {
		if entry.CompletedOn != nil && now.Sub(*entry.CompletedOn) > jm.ttl {
			delete(jm.jobs, id)
		}
	}
}

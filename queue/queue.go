package queue

import (
	"sync"

	"go.uber.org/zap"

	"github.com/katje/colorizer/errors"
)

// SubscriberChannelBufferSize is the buffer for job update channels.
// Slow subscribers drop updates instead of blocking queue mutations.
const SubscriberChannelBufferSize = 100

// Queue holds the active job list. The in-memory slice is canonical and in
// queue order; every mutation is written through to the store.
type Queue struct {
	store  *Store
	logger *zap.SugaredLogger

	mu          sync.RWMutex
	jobs        []*Job
	paused      bool
	subscribers []chan *Job
}

// NewQueue creates a queue and restores persisted jobs. A load failure is
// logged and yields an empty queue; startup is never blocked on a broken
// store.
func NewQueue(store *Store, logger *zap.SugaredLogger) *Queue {
	q := &Queue{
		store:  store,
		logger: logger,
	}

	jobs, err := store.Load()
	if err != nil {
		if logger != nil {
			logger.Errorw("Failed to load persisted queue, starting empty",
				"error", err)
		}
		jobs = nil
	}
	q.jobs = jobs

	return q
}

// Enqueue validates and appends a new pending job, persisting the change.
func (q *Queue) Enqueue(payload []byte, mimeType, displayName string, iterations int) (*Job, error) {
	job, err := NewJob(payload, mimeType, displayName, iterations)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.persistLocked()
	q.mu.Unlock()

	q.notifySubscribers(job.clone())
	return job.clone(), nil
}

// Jobs returns a snapshot of the queue in order. Payloads are shared with
// the queue's copies; callers must not mutate them.
func (q *Queue) Jobs() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	snapshot := make([]*Job, len(q.jobs))
	for i, job := range q.jobs {
		snapshot[i] = job.clone()
	}
	return snapshot
}

// Get returns a copy of the job with the given id.
func (q *Queue) Get(id string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range q.jobs {
		if job.ID == id {
			return job.clone(), nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "job %s", id)
}

// Len returns the number of active jobs.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.jobs)
}

// ProcessingCount returns how many jobs are currently in flight.
func (q *Queue) ProcessingCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.processingCountLocked()
}

func (q *Queue) processingCountLocked() int {
	count := 0
	for _, job := range q.jobs {
		if job.IsProcessing() {
			count++
		}
	}
	return count
}

// Delete removes a job that is not in flight. In-flight work cannot be
// cancelled; the job must finish or fail first.
func (q *Queue) Delete(id string) error {
	q.mu.Lock()
	var removed *Job
	for i, job := range q.jobs {
		if job.ID == id {
			if job.IsProcessing() {
				q.mu.Unlock()
				return errors.Wrapf(errors.ErrInvalidRequest, "job %s is processing", id)
			}
			removed = job
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
	if removed == nil {
		q.mu.Unlock()
		return errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	q.persistLocked()
	q.mu.Unlock()

	q.notifySubscribers(nil)
	return nil
}

// Clear removes every job that is not currently processing and returns how
// many were removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	var kept []*Job
	for _, job := range q.jobs {
		if job.IsProcessing() {
			kept = append(kept, job)
		}
	}
	removed := len(q.jobs) - len(kept)
	q.jobs = kept
	if removed > 0 {
		q.persistLocked()
	}
	q.mu.Unlock()

	if removed > 0 {
		q.notifySubscribers(nil)
	}
	return removed
}

// Retry re-queues a terminally failed job: the error message is cleared,
// the retry counter reset, and the job moves to the end of the queue so it
// cannot starve fresh work.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	var retried *Job
	for i, job := range q.jobs {
		if job.ID == id {
			if !job.IsError() {
				q.mu.Unlock()
				return errors.Wrapf(errors.ErrInvalidRequest, "job %s is not in the error state", id)
			}
			retried = job
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
	if retried == nil {
		q.mu.Unlock()
		return errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}

	retried.Status = StatusPending
	retried.ErrorMessage = ""
	retried.RetryCount = 0
	q.jobs = append(q.jobs, retried)
	q.persistLocked()
	q.mu.Unlock()

	q.notifySubscribers(retried.clone())
	return nil
}

// RetryAll re-queues every terminally failed job, preserving their relative
// order at the end of the queue. Returns how many were retried.
func (q *Queue) RetryAll() int {
	q.mu.Lock()
	var kept, retried []*Job
	for _, job := range q.jobs {
		if job.IsError() {
			job.Status = StatusPending
			job.ErrorMessage = ""
			job.RetryCount = 0
			retried = append(retried, job)
		} else {
			kept = append(kept, job)
		}
	}
	if len(retried) > 0 {
		q.jobs = append(kept, retried...)
		q.persistLocked()
	}
	q.mu.Unlock()

	if len(retried) > 0 {
		q.notifySubscribers(nil)
	}
	return len(retried)
}

// Pause stops new dispatches. In-flight jobs finish naturally.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.notifySubscribers(nil)
}

// Resume allows dispatching again.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.notifySubscribers(nil)
}

// IsPaused reports whether dispatching is currently suspended.
func (q *Queue) IsPaused() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.paused
}

// dispatchNext atomically selects the next eligible job and marks it
// processing. The status transition under the lock is the mutual-exclusion
// mechanism: overlapping scheduler wakeups can never pick the same job
// twice. Returns nil when nothing is eligible.
func (q *Queue) dispatchNext(maxConcurrent int) *Job {
	q.mu.Lock()
	job := SelectNext(q.jobs, q.processingCountLocked(), maxConcurrent, q.paused)
	if job == nil {
		q.mu.Unlock()
		return nil
	}

	job.Status = StatusProcessing
	job.ErrorMessage = ""
	q.persistLocked()
	q.mu.Unlock()

	q.notifySubscribers(job.clone())
	return job.clone()
}

// finishSuccess consumes one iteration after a successful generation.
// With budget remaining the job goes back to pending in place; otherwise it
// is removed from the queue entirely. Returns the remaining iterations.
func (q *Queue) finishSuccess(id string) int {
	q.mu.Lock()
	remaining := 0
	var updated *Job
	for i, job := range q.jobs {
		if job.ID != id {
			continue
		}
		job.Iterations--
		if job.Iterations < 0 {
			job.Iterations = 0
		}
		remaining = job.Iterations
		if remaining > 0 {
			job.Status = StatusPending
			job.ErrorMessage = ""
			updated = job
		} else {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
		}
		break
	}
	q.persistLocked()
	q.mu.Unlock()

	if updated != nil {
		q.notifySubscribers(updated.clone())
	} else {
		q.notifySubscribers(nil)
	}
	return remaining
}

// finishFailure resolves a failed attempt. With more than one iteration
// remaining the failure consumes an iteration and the job silently returns
// to pending; otherwise it becomes a terminal error carrying the extracted
// message.
func (q *Queue) finishFailure(id, message string) (requeued bool) {
	q.mu.Lock()
	var updated *Job
	for _, job := range q.jobs {
		if job.ID != id {
			continue
		}
		job.RetryCount++
		if job.Iterations > 1 {
			job.Iterations--
			job.Status = StatusPending
			job.ErrorMessage = ""
			requeued = true
		} else {
			job.Status = StatusError
			job.ErrorMessage = message
		}
		updated = job
		break
	}
	q.persistLocked()
	q.mu.Unlock()

	if updated != nil {
		q.notifySubscribers(updated.clone())
	}
	return requeued
}

// release puts an in-flight job back to pending without touching its
// counters. Used when shutdown interrupts a dispatch; the next run's crash
// recovery would do the same.
func (q *Queue) release(id string) {
	q.mu.Lock()
	var updated *Job
	for _, job := range q.jobs {
		if job.ID == id && job.IsProcessing() {
			job.Status = StatusPending
			updated = job
			break
		}
	}
	if updated != nil {
		q.persistLocked()
	}
	q.mu.Unlock()

	if updated != nil {
		q.notifySubscribers(updated.clone())
	}
}

// persistLocked writes the queue through to the store. Persistence failures
// are logged, not fatal: the in-memory queue keeps running.
func (q *Queue) persistLocked() {
	if err := q.store.Save(q.jobs); err != nil {
		if q.logger != nil {
			q.logger.Errorw("Failed to persist queue", "error", err)
		}
	}
}

// Subscribe returns a channel receiving job updates. A nil update means
// the queue shape changed (removal, clear, pause) without a single job to
// point at. The caller must Unsubscribe and then close the channel.
func (q *Queue) Subscribe() chan *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan *Job, SubscriberChannelBufferSize)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription channel.
func (q *Queue) Unsubscribe(ch chan *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers pushes an update without blocking. Full channels drop
// the update; subscribers resynchronize from Jobs().
func (q *Queue) notifySubscribers(job *Job) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, ch := range q.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}

package queue

// SelectNext picks the next job to dispatch, or nil when nothing is
// eligible. It is a pure function over a snapshot of the queue so the
// dequeue policy stays testable independent of the scheduler loop.
//
// Policy: first pending job in queue order, gated on the paused flag and
// the count of jobs already processing. Manually retried jobs were moved
// to the end of the ordering when they were retried, so a permanently
// broken input cannot starve fresh work.
func SelectNext(jobs []*Job, processingCount, maxConcurrent int, paused bool) *Job {
	if paused {
		return nil
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if processingCount >= maxConcurrent {
		return nil
	}
	for _, job := range jobs {
		if job.IsPending() {
			return job
		}
	}
	return nil
}

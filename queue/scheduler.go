package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/sym"
)

const (
	// DefaultMinDispatchInterval spaces out calls to the generation API.
	// Pacing is global across concurrency slots.
	DefaultMinDispatchInterval = 1000 * time.Millisecond

	// DefaultCallTimeout bounds a single generation call so a hung call
	// cannot stall a concurrency slot forever.
	DefaultCallTimeout = 3 * time.Minute

	// MaxConcurrency caps the concurrency gate. The external API tolerates
	// at most two in-flight generations.
	MaxConcurrency = 2
)

// SchedulerConfig tunes the dispatch loop. Zero values fall back to the
// defaults above.
type SchedulerConfig struct {
	Concurrency         int
	MinDispatchInterval time.Duration
	CallTimeout         time.Duration
}

// Scheduler drives the queue: it selects eligible jobs, paces dispatches,
// invokes the processor, and resolves every outcome back into a job-state
// transition. Processing errors never propagate out of the loop.
type Scheduler struct {
	queue     *Queue
	processor Processor
	results   ResultStore
	sink      Sink
	recorder  Recorder
	options   func() Options

	concurrency int
	callTimeout time.Duration
	pacer       *rate.Limiter

	logger   *zap.SugaredLogger
	queueLog *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler wires a scheduler. options supplies the chained-call
// switches snapshotted at each dispatch; a nil func disables both.
func NewScheduler(q *Queue, processor Processor, results ResultStore, sink Sink, recorder Recorder, options func() Options, cfg SchedulerConfig, log *zap.SugaredLogger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > MaxConcurrency {
		cfg.Concurrency = MaxConcurrency
	}
	if cfg.MinDispatchInterval <= 0 {
		cfg.MinDispatchInterval = DefaultMinDispatchInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if options == nil {
		options = func() Options { return Options{} }
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Scheduler{
		queue:       q,
		processor:   processor,
		results:     results,
		sink:        sink,
		recorder:    recorder,
		options:     options,
		concurrency: cfg.Concurrency,
		callTimeout: cfg.CallTimeout,
		pacer:       rate.NewLimiter(rate.Every(cfg.MinDispatchInterval), 1),
		logger:      log,
		queueLog:    logger.AddQueueSymbol(log),
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Infow(sym.Open+" Scheduler starting",
		"concurrency", s.concurrency,
		"call_timeout", s.callTimeout.String(),
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts dispatching and waits for in-flight jobs to resolve. Jobs
// interrupted mid-call are released back to pending.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Infow(sym.Close + " Scheduler stopped")
	})
}

// run is the watcher: it re-evaluates eligibility whenever the queue
// changes. dispatchNext's status transition under the queue lock makes
// overlapping wakeups safe.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	updates := s.queue.Subscribe()
	defer func() {
		s.queue.Unsubscribe(updates)
		close(updates)
	}()

	for {
		s.dispatchEligible(ctx)

		select {
		case <-ctx.Done():
			return
		case <-updates:
		}
	}
}

// dispatchEligible starts every job the gates currently admit.
func (s *Scheduler) dispatchEligible(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job := s.queue.dispatchNext(s.concurrency)
		if job == nil {
			return
		}

		s.queueLog.Infow("Job dispatched [job:"+shortID(job.ID)+"]",
			"job_id", job.ID,
			"display_name", job.DisplayName,
			"iterations", job.Iterations,
		)

		s.wg.Add(1)
		go s.process(ctx, job)
	}
}

// process runs one job end to end. The job is already marked processing;
// the pacing wait happens after that transition so the watcher cannot
// re-dequeue it during the delay.
func (s *Scheduler) process(ctx context.Context, job *Job) {
	defer s.wg.Done()

	if err := s.pacer.Wait(ctx); err != nil {
		// Shutdown during the pacing delay; hand the job back untouched.
		s.queue.release(job.ID)
		return
	}

	opts := s.options()
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	gen, err := s.processor.Colorize(callCtx, job)
	cancel()

	if err == nil && (gen == nil || len(gen.Image) == 0) {
		// The call resolved but produced nothing usable. Distinct from a
		// transport error, identical for job-state purposes.
		if gen != nil {
			s.recordLogs(gen.Logs)
		}
		err = errors.WithDetail(errors.ErrNoImage, "Job ID: "+job.ID)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a real failure.
			s.queue.release(job.ID)
			return
		}
		s.handleFailure(ctx, job, err, opts)
		return
	}

	s.handleSuccess(ctx, job, gen, opts, time.Since(start))
}

// handleSuccess materializes the artifact, feeds the sink, runs the
// best-effort chained story, and consumes one iteration.
func (s *Scheduler) handleSuccess(ctx context.Context, job *Job, gen *Generation, opts Options, elapsed time.Duration) {
	s.recordLogs(gen.Logs)

	resultID, err := s.results.Add(job, gen)
	if err != nil {
		// Gallery persistence failing must not fail the job; the artifact
		// still reaches the sink.
		s.logger.Errorw("Failed to store result",
			"job_id", job.ID,
			"error", err,
		)
	}

	s.sink.Enqueue(gen.Filename, gen.Image)

	if opts.StoryEnabled {
		s.runStory(ctx, job, gen, resultID)
	}

	remaining := s.queue.finishSuccess(job.ID)

	s.queueLog.Infow("Job finished [job:"+shortID(job.ID)+"]",
		"job_id", job.ID,
		"display_name", job.DisplayName,
		"iterations", remaining,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// runStory performs the chained text generation. Failure is logged only.
func (s *Scheduler) runStory(ctx context.Context, job *Job, gen *Generation, resultID string) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	story, err := s.processor.Story(callCtx, job, gen)
	cancel()

	if story != nil {
		s.recordLogs(story.Logs)
	}
	if err != nil {
		s.recordCallError(err)
		s.recorder.Record(journal.CategoryError, "Story generation failed",
			errors.ExtractMessage(err))
		return
	}
	if story == nil || len(story.Image) == 0 {
		s.recorder.Record(journal.CategoryError, "Story generation returned nothing", nil)
		return
	}

	s.sink.Enqueue(story.Filename, story.Image)

	// The gallery shows the story next to its result. Skipped when the
	// result itself failed to persist.
	if resultID != "" {
		if err := s.results.AttachStory(resultID, string(story.Image)); err != nil {
			s.logger.Warnw("Failed to attach story to result",
				"result_id", resultID,
				"error", err,
			)
		}
	}
}

// handleFailure classifies the error, records everything the client
// attached, optionally runs the forensic report, and resolves the job.
func (s *Scheduler) handleFailure(ctx context.Context, job *Job, err error, opts Options) {
	s.recordCallError(err)

	message := errors.ExtractMessage(err)
	s.recorder.Record(journal.CategoryError,
		"Generation failed: "+job.DisplayName, message)

	if opts.ReportEnabled {
		s.runFailureReport(ctx, job, err)
	}

	requeued := s.queue.finishFailure(job.ID, message)

	if requeued {
		s.queueLog.Warnw("Job failed, consuming an iteration [job:"+shortID(job.ID)+"]",
			"job_id", job.ID,
			"error", message,
		)
	} else {
		s.queueLog.Errorw("Job failed terminally [job:"+shortID(job.ID)+"]",
			"job_id", job.ID,
			"display_name", job.DisplayName,
			"error", message,
		)
	}
}

// runFailureReport performs the best-effort diagnostic call. Its failure is
// logged and never masks the original error.
func (s *Scheduler) runFailureReport(ctx context.Context, job *Job, cause error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	report, err := s.processor.FailureReport(callCtx, job, cause)
	cancel()

	if report != nil {
		s.recordLogs(report.Logs)
	}
	if err != nil {
		s.recordCallError(err)
		s.recorder.Record(journal.CategoryError, "Failure report failed",
			errors.ExtractMessage(err))
		return
	}
	if report != nil && len(report.Image) > 0 {
		s.sink.Enqueue(report.Filename, report.Image)
	}
}

// recordLogs forwards client call logs to the journal.
func (s *Scheduler) recordLogs(logs []CallLog) {
	for _, l := range logs {
		s.recorder.Record(l.Category, l.Title, l.Detail)
	}
}

// recordCallError forwards the partial logs a failed call carried.
func (s *Scheduler) recordCallError(err error) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		s.recordLogs(callErr.Logs)
	}
}

// shortID truncates a job id for log brackets.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

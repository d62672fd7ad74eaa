package queue

import (
	"context"
)

// CallLog is one structured log line emitted by the processing client.
// Calls may emit logs regardless of success or failure; the scheduler
// forwards every line to the journal.
type CallLog struct {
	Category string
	Title    string
	Detail   interface{}
}

// Generation is the artifact produced by a successful processing call.
type Generation struct {
	Image    []byte
	MIMEType string
	Filename string
	Model    string
	Logs     []CallLog
}

// CallError carries the structured logs a failed call emitted before it
// died, so partial request/response traces survive into the journal.
type CallError struct {
	Err  error
	Logs []CallLog
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return "processing call failed"
	}
	return e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Processor is the external generation service seen from the scheduler.
// Implementations own the settings snapshot applied to each call.
type Processor interface {
	// Colorize runs the primary image generation for a job.
	Colorize(ctx context.Context, job *Job) (*Generation, error)

	// Story runs the chained text generation against a finished artifact.
	// Best-effort: failures never fail the parent job.
	Story(ctx context.Context, job *Job, gen *Generation) (*Generation, error)

	// FailureReport runs a best-effort diagnostic call against the
	// original payload after a failed generation.
	FailureReport(ctx context.Context, job *Job, cause error) (*Generation, error)
}

// Recorder receives structured events for the session journal.
type Recorder interface {
	Record(category, title string, detail interface{})
}

// ResultStore receives finished artifacts for the gallery.
type ResultStore interface {
	Add(job *Job, gen *Generation) (string, error)

	// AttachStory records the chained story text on a stored result.
	AttachStory(resultID, story string) error
}

// Sink receives artifacts to deliver, drained FIFO with a cooldown.
type Sink interface {
	Enqueue(filename string, content []byte)
}

// Options is the per-dispatch snapshot of the chained-call switches.
type Options struct {
	StoryEnabled  bool
	ReportEnabled bool
}

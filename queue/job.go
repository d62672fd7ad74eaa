// Package queue implements the colorizer's job-processing core: a persistent
// job queue, a pure dequeue policy, and a scheduler that paces calls to the
// generative-image service.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/katje/colorizer/errors"
)

// Status constants for queue jobs. A job that finishes successfully is
// removed from the queue rather than marked complete; its output lives on
// as a gallery result.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusError      = "error"
)

// Job represents one submitted image awaiting or undergoing processing.
//
// Payload is immutable after creation and owned exclusively by the job.
// Status, ErrorMessage, RetryCount and Iterations are mutated only by the
// Queue under its lock.
type Job struct {
	ID           string    `json:"id"`
	Payload      []byte    `json:"-"`
	MIMEType     string    `json:"mime_type"`
	DisplayName  string    `json:"display_name"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RetryCount   int       `json:"retry_count"`
	Iterations   int       `json:"iterations"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJob creates a pending job for one submitted image. Iterations below 1
// are coerced to 1.
func NewJob(payload []byte, mimeType, displayName string, iterations int) (*Job, error) {
	if len(payload) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "job payload is empty")
	}
	if displayName == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "job display name is required")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	if iterations < 1 {
		iterations = 1
	}

	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		Payload:     payload,
		MIMEType:    mimeType,
		DisplayName: displayName,
		Status:      StatusPending,
		Iterations:  iterations,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsPending reports whether the job is waiting to be dispatched.
func (j *Job) IsPending() bool { return j.Status == StatusPending }

// IsProcessing reports whether the job is currently in flight.
func (j *Job) IsProcessing() bool { return j.Status == StatusProcessing }

// IsError reports whether the job has failed terminally and needs a manual
// retry or deletion.
func (j *Job) IsError() bool { return j.Status == StatusError }

// clone returns a shallow copy. Payload is shared; it is immutable.
func (j *Job) clone() *Job {
	c := *j
	return &c
}

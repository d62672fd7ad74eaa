package server

import (
	"time"

	"github.com/katje/colorizer/queue"
)

// JobView is the wire shape of a queue job. Payload bytes never cross the
// API; size stands in for them.
type JobView struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	MIMEType     string    `json:"mimeType"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	RetryCount   int       `json:"retryCount"`
	Iterations   int       `json:"iterations"`
	Size         int       `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func jobView(job *queue.Job) JobView {
	return JobView{
		ID:           job.ID,
		DisplayName:  job.DisplayName,
		MIMEType:     job.MIMEType,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		RetryCount:   job.RetryCount,
		Iterations:   job.Iterations,
		Size:         len(job.Payload),
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// QueueUpdateMessage is broadcast to WebSocket clients whenever the job set
// changes. Clients render from the snapshot; there is no incremental
// protocol.
type QueueUpdateMessage struct {
	Type       string    `json:"type"` // "queue_update"
	Jobs       []JobView `json:"jobs"`
	Paused     bool      `json:"paused"`
	Pending    int       `json:"pending"`
	Processing int       `json:"processing"`
	Errored    int       `json:"errored"`
	Timestamp  int64     `json:"timestamp"`
}

// RecentErrorsMessage carries the deduplicated error banner list.
type RecentErrorsMessage struct {
	Type   string   `json:"type"` // "recent_errors"
	Errors []string `json:"errors"`
}

// VersionMessage is sent once on WebSocket connect.
type VersionMessage struct {
	Type      string `json:"type"` // "version"
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// UploadResponse reports the fan-out result of a multipart upload.
type UploadResponse struct {
	Accepted []JobView `json:"accepted"`
	Rejected []string  `json:"rejected,omitempty"`
}

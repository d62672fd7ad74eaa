// Package journal keeps the bounded session log: every request, response
// and error flowing through the daemon, newest first, plus a small
// deduplicated surface of recent error messages for the UI banner.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/katje/colorizer/errors"
)

// Log categories. Model categories cover the text-generation calls, image
// categories the image-generation calls.
const (
	CategoryInfo          = "info"
	CategoryError         = "error"
	CategoryModelRequest  = "model-request"
	CategoryModelResponse = "model-response"
	CategoryImageRequest  = "image-request"
	CategoryImageResponse = "image-response"
)

const (
	// MaxEntries bounds the session log. Oldest entries drop off.
	MaxEntries = 100

	// MaxRecentErrors bounds the deduplicated error banner list.
	MaxRecentErrors = 5
)

// Entry is one journal line. Detail is either a plain string or an
// arbitrary structured payload logged verbatim for diagnostics.
type Entry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Category  string      `json:"category"`
	Title     string      `json:"title"`
	Detail    interface{} `json:"detail,omitempty"`
}

// Journal is the bounded, newest-first session log.
type Journal struct {
	mu           sync.RWMutex
	entries      []Entry
	recentErrors []string
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Record appends an entry at the front, dropping the oldest past the cap.
// Error entries additionally surface a short extracted message on the
// deduplicated recent-errors list.
func (j *Journal) Record(category, title string, detail interface{}) {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Category:  category,
		Title:     title,
		Detail:    detail,
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append([]Entry{entry}, j.entries...)
	if len(j.entries) > MaxEntries {
		j.entries = j.entries[:MaxEntries]
	}

	if category == CategoryError {
		j.pushRecentErrorLocked(extractBannerMessage(title, detail))
	}
}

// extractBannerMessage derives the short human string for the banner list.
// Detail shapes vary; fall back to the entry title, then the generic label.
func extractBannerMessage(title string, detail interface{}) string {
	if detail != nil {
		if msg := errors.ExtractMessage(detail); msg != errors.UnknownErrorMessage {
			return msg
		}
	}
	if title != "" {
		return errors.Truncate(title, errors.MaxRecentErrorLength)
	}
	return errors.UnknownErrorMessage
}

// pushRecentErrorLocked prepends a message, collapsing duplicates to their
// newest position and trimming past the cap.
func (j *Journal) pushRecentErrorLocked(message string) {
	filtered := make([]string, 0, len(j.recentErrors)+1)
	filtered = append(filtered, message)
	for _, existing := range j.recentErrors {
		if existing != message {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) > MaxRecentErrors {
		filtered = filtered[:MaxRecentErrors]
	}
	j.recentErrors = filtered
}

// Entries returns a newest-first snapshot of the log.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snapshot := make([]Entry, len(j.entries))
	copy(snapshot, j.entries)
	return snapshot
}

// RecentErrors returns the deduplicated banner messages, newest first.
func (j *Journal) RecentErrors() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snapshot := make([]string, len(j.recentErrors))
	copy(snapshot, j.recentErrors)
	return snapshot
}

// Clear empties the log and the recent-errors list.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
	j.recentErrors = nil
}

// ClearRecentErrors dismisses the banner without touching the log.
func (j *Journal) ClearRecentErrors() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recentErrors = nil
}

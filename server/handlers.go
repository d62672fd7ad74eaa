package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/gemini"
	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/version"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 64 << 20

// HandleHealth reports liveness and headline queue counters.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"jobs":       s.queue.Len(),
		"processing": s.queue.ProcessingCount(),
		"paused":     s.queue.IsPaused(),
		"clients":    clients,
	})
}

// HandleVersion returns build information.
func (s *Server) HandleVersion(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, version.Get())
}

// HandleUpload accepts a multipart form of images and enqueues one job per
// accepted file. Non-image parts are rejected individually; one bad file
// never fails the batch.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	iterations := s.settings().DefaultIterations

	var resp UploadResponse
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				resp.Rejected = append(resp.Rejected, header.Filename)
				continue
			}
			payload, err := io.ReadAll(file)
			file.Close()
			if err != nil || len(payload) == 0 {
				resp.Rejected = append(resp.Rejected, header.Filename)
				continue
			}

			mimeType := header.Header.Get("Content-Type")
			if !strings.HasPrefix(mimeType, "image/") {
				mimeType = http.DetectContentType(payload)
			}
			if !strings.HasPrefix(mimeType, "image/") {
				s.logger.Warnw("Rejecting non-image upload",
					logger.FieldFile, header.Filename,
					"mime_type", mimeType,
				)
				resp.Rejected = append(resp.Rejected, header.Filename)
				continue
			}

			job, err := s.queue.Enqueue(payload, mimeType, header.Filename, iterations)
			if err != nil {
				s.logger.Errorw("Failed to enqueue upload",
					logger.FieldFile, header.Filename,
					logger.FieldError, err,
				)
				resp.Rejected = append(resp.Rejected, header.Filename)
				continue
			}
			resp.Accepted = append(resp.Accepted, jobView(job))
		}
	}

	if len(resp.Accepted) == 0 && len(resp.Rejected) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleJobs lists the queue (GET) or clears every job that is not in
// flight (DELETE).
func (s *Server) HandleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.queueUpdateMessage())
	case http.MethodDelete:
		removed := s.queue.Clear()
		s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleJob serves one job: DELETE /api/jobs/{id} removes it, POST
// /api/jobs/{id}/retry requeues a failed job.
func (s *Server) HandleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusBadRequest, "missing job id")
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "retry" {
		if !s.requireMethod(w, r, http.MethodPost) {
			return
		}
		s.finishJobAction(w, id, s.queue.Retry(id))
		return
	}
	if len(parts) != 1 {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !s.requireMethod(w, r, http.MethodDelete) {
		return
	}
	s.finishJobAction(w, id, s.queue.Delete(id))
}

func (s *Server) finishJobAction(w http.ResponseWriter, id string, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
	case errors.Is(err, errors.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, errors.ErrInvalidRequest):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Errorw("Job action failed",
			logger.FieldJobID, shortID(id),
			logger.FieldError, err,
		)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// HandleRetryAll requeues every terminally failed job.
func (s *Server) HandleRetryAll(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	retried := s.queue.RetryAll()
	s.writeJSON(w, http.StatusOK, map[string]int{"retried": retried})
}

// HandlePause stops dispatching. In-flight jobs run to completion.
func (s *Server) HandlePause(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	s.queue.Pause()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// HandleResume re-enables dispatching.
func (s *Server) HandleResume(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	s.queue.Resume()
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// HandleGallery lists results (GET) or clears the gallery (DELETE). List
// responses carry metadata only; image bytes are fetched per result.
func (s *Server) HandleGallery(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		results, err := s.gallery.List()
		if err != nil {
			s.logger.Errorw("Failed to list gallery",
				logger.FieldError, err,
			)
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s.writeJSON(w, http.StatusOK, results)
	case http.MethodDelete:
		removed, err := s.gallery.Clear()
		if err != nil {
			s.logger.Errorw("Failed to clear gallery",
				logger.FieldError, err,
			)
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleGalleryItem serves one result: GET /api/gallery/{id} for metadata,
// GET /api/gallery/{id}/image for the raw bytes, DELETE /api/gallery/{id}.
func (s *Server) HandleGalleryItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/gallery/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusBadRequest, "missing result id")
		return
	}
	id := parts[0]

	wantImage := len(parts) == 2 && parts[1] == "image"
	if len(parts) > 1 && !wantImage {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method == http.MethodDelete && !wantImage {
		err := s.gallery.Delete(id)
		switch {
		case err == nil:
			s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
		case errors.Is(err, errors.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "result not found")
		default:
			s.logger.Errorw("Failed to delete result",
				logger.FieldError, err,
			)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := s.gallery.Get(id)
	if errors.Is(err, errors.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		s.logger.Errorw("Failed to load result",
			logger.FieldError, err,
		)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if wantImage {
		w.Header().Set("Content-Type", result.MIMEType)
		w.Header().Set("Content-Disposition", `inline; filename="`+result.Filename+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write(result.Image)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// HandleJournal serves the session log (GET) or clears it (DELETE).
func (s *Server) HandleJournal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.journal.Entries())
	case http.MethodDelete:
		s.journal.Clear()
		s.writeJSON(w, http.StatusOK, nil)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleRecentErrors serves the deduplicated error banners (GET) or
// dismisses them (DELETE).
func (s *Server) HandleRecentErrors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, RecentErrorsMessage{
			Type:   "recent_errors",
			Errors: s.journal.RecentErrors(),
		})
	case http.MethodDelete:
		s.journal.ClearRecentErrors()
		s.writeJSON(w, http.StatusOK, nil)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleSettings reads (GET) or replaces (PUT) the generation settings.
// Replacements are normalized and persisted; jobs already dispatched keep
// the settings they started with.
func (s *Server) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.settings())
	case http.MethodPut:
		var incoming gemini.Settings
		if err := s.readJSON(r, &incoming); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid settings payload")
			return
		}
		incoming = incoming.Normalize()
		if err := s.save(incoming); err != nil {
			s.logger.Errorw("Failed to save settings",
				logger.FieldError, err,
			)
			s.writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		s.writeJSON(w, http.StatusOK, incoming)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandlePromptOptions serves the data-driven prompt tables the UI renders
// its pickers from.
func (s *Server) HandlePromptOptions(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, gemini.DefaultPromptConfig())
}

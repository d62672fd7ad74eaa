package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/katje/colorizer/gallery"
	"github.com/katje/colorizer/gemini"
	itesting "github.com/katje/colorizer/internal/testing"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/queue"
)

// pngHeader is enough of a real PNG for content sniffing to accept it.
var pngHeader = []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("x", 32))

type serverHarness struct {
	server   *Server
	queue    *queue.Queue
	gallery  *gallery.Gallery
	journal  *journal.Journal
	settings gemini.Settings
	mu       sync.Mutex
}

func newHarness(t *testing.T) *serverHarness {
	t.Helper()

	conn := itesting.CreateTestDB(t)
	log := zap.NewNop().Sugar()

	h := &serverHarness{
		queue:    queue.NewQueue(queue.NewStore(conn, log), log),
		gallery:  gallery.New(conn, log),
		journal:  journal.New(),
		settings: gemini.DefaultSettings(),
	}
	h.server = New(Options{
		Queue:   h.queue,
		Gallery: h.gallery,
		Journal: h.journal,
		Settings: func() gemini.Settings {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.settings
		},
		SaveSettings: func(s gemini.Settings) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.settings = s
			return nil
		},
		Logger: log,
	})
	return h
}

func (h *serverHarness) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func multipartUpload(t *testing.T, files map[string][]byte, contentTypes map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, payload := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		if ct, ok := contentTypes[name]; ok {
			header.Set("Content-Type", ct)
		}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	h := newHarness(t)

	body, contentType := multipartUpload(t,
		map[string][]byte{
			"cat.png":   pngHeader,
			"notes.txt": []byte("plain text, not an image"),
		},
		map[string]string{
			"cat.png":   "image/png",
			"notes.txt": "text/plain",
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[UploadResponse](t, rec)
	require.Len(t, resp.Accepted, 1)
	assert.Equal(t, "cat.png", resp.Accepted[0].DisplayName)
	assert.Equal(t, queue.StatusPending, resp.Accepted[0].Status)
	assert.Equal(t, len(pngHeader), resp.Accepted[0].Size)
	assert.Equal(t, []string{"notes.txt"}, resp.Rejected)

	assert.Equal(t, 1, h.queue.Len())
}

func TestHandleUploadAllRejected(t *testing.T) {
	h := newHarness(t)

	body, contentType := multipartUpload(t,
		map[string][]byte{"notes.txt": []byte("nope")},
		map[string]string{"notes.txt": "text/plain"},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, h.queue.Len())
}

func TestHandleUploadSniffsMissingContentType(t *testing.T) {
	h := newHarness(t)

	body, contentType := multipartUpload(t,
		map[string][]byte{"cat.png": pngHeader},
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[UploadResponse](t, rec)
	require.Len(t, resp.Accepted, 1)
	assert.Equal(t, "image/png", resp.Accepted[0].MIMEType)
}

func TestHandleJobs(t *testing.T) {
	h := newHarness(t)
	_, err := h.queue.Enqueue(pngHeader, "image/png", "a.png", 1)
	require.NoError(t, err)
	_, err = h.queue.Enqueue(pngHeader, "image/png", "b.png", 1)
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	msg := decodeBody[QueueUpdateMessage](t, rec)
	assert.Equal(t, "queue_update", msg.Type)
	require.Len(t, msg.Jobs, 2)
	assert.Equal(t, 2, msg.Pending)
	assert.False(t, msg.Paused)

	rec = h.do(t, http.MethodDelete, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.queue.Len())
}

func TestHandleJobDelete(t *testing.T) {
	h := newHarness(t)
	job, err := h.queue.Enqueue(pngHeader, "image/png", "a.png", 1)
	require.NoError(t, err)

	rec := h.do(t, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.queue.Len())

	rec = h.do(t, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJobRetry(t *testing.T) {
	h := newHarness(t)
	job, err := h.queue.Enqueue(pngHeader, "image/png", "a.png", 1)
	require.NoError(t, err)

	// A pending job cannot be retried.
	rec := h.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/retry", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlePauseResume(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/queue/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.queue.IsPaused())

	rec = h.do(t, http.MethodPost, "/api/queue/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, h.queue.IsPaused())
}

func TestHandleGallery(t *testing.T) {
	h := newHarness(t)

	job, err := queue.NewJob(pngHeader, "image/png", "cat.png", 1)
	require.NoError(t, err)
	id, err := h.gallery.Add(job, &queue.Generation{
		Image:    []byte("image-bytes"),
		MIMEType: "image/png",
		Filename: "cat-colorized.png",
		Model:    "image-model",
	})
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/api/gallery", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody[[]gallery.Result](t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "cat-colorized.png", results[0].Filename)
	assert.Empty(t, results[0].Image)

	rec = h.do(t, http.MethodGet, "/api/gallery/"+id+"/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "image-bytes", rec.Body.String())

	rec = h.do(t, http.MethodDelete, "/api/gallery/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/gallery/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJournal(t *testing.T) {
	h := newHarness(t)
	h.journal.Record(journal.CategoryError, "Generation failed: cat.png", "model overloaded")

	rec := h.do(t, http.MethodGet, "/api/journal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]journal.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.CategoryError, entries[0].Category)

	rec = h.do(t, http.MethodGet, "/api/journal/errors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	banner := decodeBody[RecentErrorsMessage](t, rec)
	assert.Equal(t, []string{"model overloaded"}, banner.Errors)

	rec = h.do(t, http.MethodDelete, "/api/journal/errors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.journal.RecentErrors())

	rec = h.do(t, http.MethodDelete, "/api/journal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.journal.Entries())
}

func TestHandleSettings(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decodeBody[gemini.Settings](t, rec)
	assert.Equal(t, "Original", current.Species)

	update := current
	update.Species = "Elf"
	update.StoryEnabled = true
	update.DefaultIterations = 3
	payload, err := json.Marshal(update)
	require.NoError(t, err)

	rec = h.do(t, http.MethodPut, "/api/settings", bytes.NewReader(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	saved := decodeBody[gemini.Settings](t, rec)
	assert.Equal(t, "Elf", saved.Species)
	assert.True(t, saved.StoryEnabled)
	assert.Equal(t, 3, saved.DefaultIterations)

	// The harness save func took the new record.
	h.mu.Lock()
	assert.Equal(t, "Elf", h.settings.Species)
	h.mu.Unlock()
}

func TestHandleSettingsRejectsUnknownFields(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPut, "/api/settings", strings.NewReader(`{"bogus":"field"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePromptOptions(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/settings/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decodeBody[gemini.PromptConfig](t, rec)
	assert.NotEmpty(t, cfg.Species)
	assert.NotEmpty(t, cfg.AspectRatios)
}

func TestHandleHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestMethodRejection(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/upload", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/jobs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	h.server.allowedOrigins = []string{"http://localhost:5173"}

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	// A disallowed origin gets no CORS grant.
	req = httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketFeed(t *testing.T) {
	h := newHarness(t)
	h.server.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		h.server.Shutdown(ctx)
	})

	ts := httptest.NewServer(h.server.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// First frame is the version message, then the initial snapshot.
	var version VersionMessage
	require.NoError(t, conn.ReadJSON(&version))
	assert.Equal(t, "version", version.Type)

	readUntil := func(msgType string) map[string]interface{} {
		for {
			var raw map[string]interface{}
			require.NoError(t, conn.ReadJSON(&raw))
			if raw["type"] == msgType {
				return raw
			}
		}
	}

	snapshot := readUntil("queue_update")
	assert.Empty(t, snapshot["jobs"])

	// A queue mutation reaches the feed.
	_, err = h.queue.Enqueue(pngHeader, "image/png", "cat.png", 1)
	require.NoError(t, err)

	for {
		update := readUntil("queue_update")
		jobs, _ := update["jobs"].([]interface{})
		if len(jobs) == 1 {
			break
		}
	}
}

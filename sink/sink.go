// Package sink serializes artifact deliveries. Hosts throttle rapid-fire
// programmatic saves, so the sink drains strictly FIFO with a fixed
// cooldown between save operations regardless of burst size.
package sink

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/katje/colorizer/errors"
)

// DefaultCooldown is the fixed wait between two save operations.
const DefaultCooldown = 1500 * time.Millisecond

// SaveFunc performs one host save operation.
type SaveFunc func(filename string, content []byte) error

// Recorder receives delivery failures for the session journal.
type Recorder interface {
	Record(category, title string, detail interface{})
}

type entry struct {
	filename string
	content  []byte
}

// Sink drains queued artifacts one at a time. Failures are logged and
// recorded but never stop the drain.
type Sink struct {
	save     SaveFunc
	cooldown time.Duration
	sleep    func(time.Duration)
	logger   *zap.SugaredLogger
	recorder Recorder

	mu      sync.Mutex
	entries []entry
	busy    bool

	wg sync.WaitGroup
}

// New creates a sink delivering through save. recorder may be nil.
func New(save SaveFunc, recorder Recorder, logger *zap.SugaredLogger) *Sink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sink{
		save:     save,
		cooldown: DefaultCooldown,
		sleep:    time.Sleep,
		logger:   logger,
		recorder: recorder,
	}
}

// SetCooldown overrides the wait between saves. Call before the first
// Enqueue; a non-positive value is ignored.
func (s *Sink) SetCooldown(d time.Duration) {
	if d > 0 {
		s.cooldown = d
	}
}

// Enqueue appends an artifact and starts the drain if idle.
func (s *Sink) Enqueue(filename string, content []byte) {
	s.mu.Lock()
	s.entries = append(s.entries, entry{filename: filename, content: content})
	if s.busy {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.drain()
}

// drain pops entries FIFO, saving one per cooldown interval.
func (s *Sink) drain() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if len(s.entries) == 0 {
			s.busy = false
			s.mu.Unlock()
			return
		}
		next := s.entries[0]
		s.entries = s.entries[1:]
		s.mu.Unlock()

		if err := s.save(next.filename, next.content); err != nil {
			s.logger.Errorw("Sink delivery failed",
				"filename", next.filename,
				"error", err,
			)
			if s.recorder != nil {
				s.recorder.Record("error", "Delivery failed: "+next.filename, err.Error())
			}
		} else {
			s.logger.Infow("Artifact delivered",
				"filename", next.filename,
				"size", len(next.content),
			)
		}

		s.sleep(s.cooldown)
	}
}

// Pending returns how many entries are waiting.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Wait blocks until the current drain finishes. Used for shutdown and in
// tests.
func (s *Sink) Wait() {
	s.wg.Wait()
}

// DirSave returns a SaveFunc writing artifacts into dir, creating it on
// first use. Filenames are flattened to their base name so a crafted name
// cannot escape the directory.
func DirSave(dir string) SaveFunc {
	return func(filename string, content []byte) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create output directory")
		}
		base := filepath.Base(strings.TrimSpace(filename))
		if base == "." || base == string(filepath.Separator) || base == "" {
			return errors.Wrapf(errors.ErrInvalidRequest, "unusable filename %q", filename)
		}
		path := filepath.Join(dir, base)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", base)
		}
		return nil
	}
}

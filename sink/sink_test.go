package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katje/colorizer/errors"
)

// recordingSave collects delivered filenames under a lock.
type recordingSave struct {
	mu    sync.Mutex
	names []string
	fail  map[string]bool
}

func (r *recordingSave) save(filename string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, filename)
	if r.fail[filename] {
		return errors.New("host rejected the save")
	}
	return nil
}

func (r *recordingSave) delivered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// newTestSink wires a sink with the injected save func and no real sleeping.
// The sleeps slice records every cooldown wait.
func newTestSink(save SaveFunc) (*Sink, *[]time.Duration) {
	s := New(save, nil, nil)
	var mu sync.Mutex
	sleeps := &[]time.Duration{}
	s.sleep = func(d time.Duration) {
		mu.Lock()
		*sleeps = append(*sleeps, d)
		mu.Unlock()
	}
	return s, sleeps
}

func TestDrainFIFO(t *testing.T) {
	rec := &recordingSave{}
	s, _ := newTestSink(rec.save)

	for i := 0; i < 5; i++ {
		s.Enqueue(fmt.Sprintf("artifact-%d.png", i), []byte("x"))
	}
	s.Wait()

	assert.Equal(t, []string{
		"artifact-0.png", "artifact-1.png", "artifact-2.png",
		"artifact-3.png", "artifact-4.png",
	}, rec.delivered(), "entries drain strictly FIFO")
	assert.Equal(t, 0, s.Pending())
}

func TestCooldownBetweenSaves(t *testing.T) {
	rec := &recordingSave{}
	s, sleeps := newTestSink(rec.save)

	for i := 0; i < 4; i++ {
		s.Enqueue(fmt.Sprintf("artifact-%d.png", i), []byte("x"))
	}
	s.Wait()

	require.Len(t, rec.delivered(), 4, "every enqueue triggers exactly one save")
	require.Len(t, *sleeps, 4, "one cooldown wait per save")
	for _, d := range *sleeps {
		assert.Equal(t, DefaultCooldown, d)
	}
}

func TestFailuresDoNotStopTheDrain(t *testing.T) {
	rec := &recordingSave{fail: map[string]bool{"bad.png": true}}
	s, _ := newTestSink(rec.save)

	s.Enqueue("good-1.png", []byte("x"))
	s.Enqueue("bad.png", []byte("x"))
	s.Enqueue("good-2.png", []byte("x"))
	s.Wait()

	assert.Equal(t, []string{"good-1.png", "bad.png", "good-2.png"}, rec.delivered(),
		"a failed save still advances to the next entry")
}

func TestEnqueueDuringDrain(t *testing.T) {
	rec := &recordingSave{}
	s := New(rec.save, nil, nil)
	var once sync.Once
	s.sleep = func(time.Duration) {
		// Feed another entry mid-drain to exercise the busy flag.
		once.Do(func() { s.Enqueue("late.png", []byte("x")) })
	}

	s.Enqueue("early.png", []byte("x"))
	s.Wait()

	assert.Equal(t, []string{"early.png", "late.png"}, rec.delivered())
}

func TestDirSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	save := DirSave(dir)

	require.NoError(t, save("result.png", []byte("bytes")))
	content, err := os.ReadFile(filepath.Join(dir, "result.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), content)

	t.Run("flattens path traversal", func(t *testing.T) {
		require.NoError(t, save("../../escape.png", []byte("x")))
		_, err := os.Stat(filepath.Join(dir, "escape.png"))
		assert.NoError(t, err, "file lands inside the output directory")
	})

	t.Run("rejects unusable names", func(t *testing.T) {
		assert.Error(t, save("   ", []byte("x")))
	})
}

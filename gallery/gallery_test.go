package gallery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itesting "github.com/katje/colorizer/internal/testing"
	"github.com/katje/colorizer/queue"
)

func testJob(t *testing.T, name string) *queue.Job {
	t.Helper()
	job, err := queue.NewJob([]byte("image-bytes"), "image/png", name, 1)
	require.NoError(t, err)
	return job
}

func testGeneration(filename string) *queue.Generation {
	return &queue.Generation{
		Image:    []byte("generated-bytes"),
		MIMEType: "image/png",
		Filename: filename,
		Model:    "gemini-2.5-flash-image",
	}
}

func TestAddAndGet(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)

	job := testJob(t, "cat.png")
	id, err := g.Add(job, testGeneration("colorized-cat.png"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	result, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, "cat.png", result.DisplayName)
	assert.Equal(t, "colorized-cat.png", result.Filename)
	assert.Equal(t, []byte("generated-bytes"), result.Image)
	assert.Equal(t, "gemini-2.5-flash-image", result.Model)
	assert.False(t, result.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)

	_, err := g.Get("nope")
	require.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)

	for i := 0; i < 3; i++ {
		_, err := g.Add(testJob(t, fmt.Sprintf("img-%d.png", i)), testGeneration(fmt.Sprintf("out-%d.png", i)))
		require.NoError(t, err)
	}

	results, err := g.List()
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "out-2.png", results[0].Filename, "newest result first")
	assert.Equal(t, "out-0.png", results[2].Filename)
	assert.Nil(t, results[0].Image, "listing omits image blobs")
}

func TestCapEviction(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)
	g.cap = 5 // small cap keeps the test fast

	var ids []string
	for i := 0; i < 8; i++ {
		id, err := g.Add(testJob(t, fmt.Sprintf("img-%d.png", i)), testGeneration(fmt.Sprintf("out-%d.png", i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	count, err := g.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count, "gallery stays at the cap")

	// The oldest three were evicted, the newest five survive.
	for _, id := range ids[:3] {
		_, err := g.Get(id)
		assert.Error(t, err, "oldest results are evicted first")
	}
	for _, id := range ids[3:] {
		_, err := g.Get(id)
		assert.NoError(t, err)
	}
}

// Timestamps are not unique within a clock tick; eviction order must follow
// insertion order regardless.
func TestCapEvictionWithTiedTimestamps(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)
	g.cap = 5
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	var ids []string
	for i := 0; i < 7; i++ {
		id, err := g.Add(testJob(t, fmt.Sprintf("img-%d.png", i)), testGeneration(fmt.Sprintf("out-%d.png", i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids[:2] {
		_, err := g.Get(id)
		assert.Error(t, err, "the first-inserted results are the ones evicted")
	}
	for _, id := range ids[2:] {
		_, err := g.Get(id)
		assert.NoError(t, err)
	}

	results, err := g.List()
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "out-6.png", results[0].Filename, "listing stays newest-first on tied timestamps")
	assert.Equal(t, "out-2.png", results[4].Filename)
}

func TestAttachStory(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)

	id, err := g.Add(testJob(t, "cat.png"), testGeneration("out.png"))
	require.NoError(t, err)

	require.NoError(t, g.AttachStory(id, "Once upon a time."))

	result, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", result.Story)

	assert.Error(t, g.AttachStory("missing", "story"))
}

func TestDeleteAndClear(t *testing.T) {
	conn := itesting.CreateTestDB(t)
	g := New(conn, nil)

	id, err := g.Add(testJob(t, "cat.png"), testGeneration("out.png"))
	require.NoError(t, err)

	require.NoError(t, g.Delete(id))
	assert.Error(t, g.Delete(id), "second delete reports not found")

	for i := 0; i < 3; i++ {
		_, err := g.Add(testJob(t, "x.png"), testGeneration("y.png"))
		require.NoError(t, err)
	}

	removed, err := g.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	count, err := g.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

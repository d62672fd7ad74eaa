package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func jobWithStatus(status string) *Job {
	return &Job{ID: "j-" + status, Status: status}
}

func TestSelectNext(t *testing.T) {
	pending := &Job{ID: "p1", Status: StatusPending}
	pending2 := &Job{ID: "p2", Status: StatusPending}
	processing := jobWithStatus(StatusProcessing)
	failed := jobWithStatus(StatusError)

	t.Run("picks first pending in queue order", func(t *testing.T) {
		got := SelectNext([]*Job{failed, pending, pending2}, 0, 1, false)
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("skips error and processing jobs", func(t *testing.T) {
		got := SelectNext([]*Job{failed, processing, pending2}, 1, 2, false)
		assert.Equal(t, "p2", got.ID)
	})

	t.Run("nil when paused", func(t *testing.T) {
		assert.Nil(t, SelectNext([]*Job{pending}, 0, 1, true))
	})

	t.Run("nil at the concurrency gate", func(t *testing.T) {
		assert.Nil(t, SelectNext([]*Job{pending}, 1, 1, false))
		assert.Nil(t, SelectNext([]*Job{pending}, 2, 2, false))
		assert.NotNil(t, SelectNext([]*Job{pending}, 1, 2, false))
	})

	t.Run("nil when nothing is pending", func(t *testing.T) {
		assert.Nil(t, SelectNext([]*Job{failed, processing}, 1, 2, false))
		assert.Nil(t, SelectNext(nil, 0, 1, false))
	})

	t.Run("nonpositive limit behaves as single flight", func(t *testing.T) {
		assert.NotNil(t, SelectNext([]*Job{pending}, 0, 0, false))
		assert.Nil(t, SelectNext([]*Job{pending}, 1, 0, false))
	})
}

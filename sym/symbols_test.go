package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "queue", Name(Queue))
	assert.Equal(t, "db", Name(DB))
	assert.Equal(t, "sink", Name(Sink))

	// Unregistered glyphs pass through untouched.
	assert.Equal(t, "?", Name("?"))
}

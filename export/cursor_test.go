package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursorAdvance(t *testing.T) {
	s0, s1, s2 := t0, t0.Add(time.Second), t0.Add(2*time.Second)

	var c cursor
	start, c := c.advance([]time.Time{s0, s1, s1})
	assert.Equal(t, 0, start)
	assert.Equal(t, cursor{at: s1, n: 2}, c)

	// a third sample sharing the last second is still new
	start, c = c.advance([]time.Time{s0, s1, s1, s1, s2})
	assert.Equal(t, 3, start)
	assert.Equal(t, cursor{at: s2, n: 1}, c)

	// oldest samples evicted, nothing new
	start, next := c.advance([]time.Time{s1, s2})
	assert.Equal(t, 2, start)
	assert.Equal(t, c, next)

	start, c = c.advance([]time.Time{s2, s2})
	assert.Equal(t, 1, start)
	assert.Equal(t, cursor{at: s2, n: 2}, c)
}

package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialPolicy(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(100*time.Millisecond, time.Second, 5)

	var last time.Duration
	for attempt := 1; attempt <= 5; attempt++ {
		d, ok := p.NextDelay(attempt)
		assert.True(t, ok)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, 1500*time.Millisecond, "jitter stays within half the cap")
		last = d
	}
	assert.Positive(t, last)

	_, ok := p.NextDelay(6)
	assert.False(t, ok)

	d, ok := p.NextDelay(1)
	assert.True(t, ok)
	assert.LessOrEqual(t, d, 150*time.Millisecond, "attempt 1 starts over")
}

func TestConstantPolicy(t *testing.T) {
	t.Parallel()

	p := NewConstantPolicy(time.Second, 0)
	for _, attempt := range []int{1, 10, 1000} {
		d, ok := p.NextDelay(attempt)
		assert.True(t, ok)
		assert.Equal(t, time.Second, d)
	}

	d, ok := NoRetry.NextDelay(1)
	assert.False(t, ok)
	assert.Zero(t, d)
}

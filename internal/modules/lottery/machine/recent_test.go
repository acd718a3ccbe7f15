package machine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecentRounds_WindowAndCapacity(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := newRecentRounds(5*time.Minute, 3)

	r.Add(1, start)
	assert.True(t, r.Contains(1, start.Add(time.Minute)))
	assert.False(t, r.Contains(1, start.Add(6*time.Minute)), "outside the window")

	for round := int64(2); round <= 6; round++ {
		r.Add(round, start.Add(10*time.Minute))
	}
	now := start.Add(10 * time.Minute)
	assert.Equal(t, []int64{4, 5, 6}, r.Rounds(now))
	assert.False(t, r.Contains(2, now), "evicted by capacity")
}

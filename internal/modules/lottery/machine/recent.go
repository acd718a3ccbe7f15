package machine

import (
	"sync"
	"time"
)

type recentEntry struct {
	round int64
	at    time.Time
}

// recentRounds remembers rounds paid within a time window, bounded in size
type recentRounds struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	entries  []recentEntry // oldest first
}

func newRecentRounds(window time.Duration, capacity int) *recentRounds {
	return &recentRounds{
		window:   window,
		capacity: capacity,
		entries:  make([]recentEntry, 0, capacity),
	}
}

// Add records a paid round
func (r *recentRounds) Add(round int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, recentEntry{round: round, at: at})
	r.prune(at)
}

// Contains reports whether round was paid within the window
func (r *recentRounds) Contains(round int64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	for _, e := range r.entries {
		if e.round == round {
			return true
		}
	}
	return false
}

// Rounds lists the remembered rounds, oldest first
func (r *recentRounds) Rounds(now time.Time) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	rounds := make([]int64, 0, len(r.entries))
	for _, e := range r.entries {
		rounds = append(rounds, e.round)
	}
	return rounds
}

// prune must be called with mu held
func (r *recentRounds) prune(now time.Time) {
	drop := 0
	for drop < len(r.entries) && now.Sub(r.entries[drop].at) > r.window {
		drop++
	}
	if over := len(r.entries) - drop - r.capacity; over > 0 {
		drop += over
	}
	if drop > 0 {
		r.entries = append(r.entries[:0], r.entries[drop:]...)
	}
}

package rules

import (
	"strings"
	"sync"
	"time"
)

// defaultTrackerLimit caps how many texts the tracker remembers. When
// the cap is hit the oldest entry goes first, trading recall for a
// bounded footprint.
const defaultTrackerLimit = 2048

type dedupEntry struct {
	key    string
	seenAt time.Time
}

// Tracker remembers recently spoken texts so identical messages inside
// the window are suppressed. Expired entries are evicted lazily during
// lookups; no background sweep runs.
type Tracker struct {
	mu    sync.Mutex
	limit int
	seen  map[string]time.Time
	order []dedupEntry
}

func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = defaultTrackerLimit
	}
	return &Tracker{
		limit: limit,
		seen:  make(map[string]time.Time),
	}
}

// Suppress records the text and reports whether an equal one was
// already seen inside the window. scope is empty for channel-wide
// dedup or a sender key for per-sender dedup.
func (t *Tracker) Suppress(scope, text string, window time.Duration, now time.Time) bool {
	key := scope + "\x00" + strings.ToLower(strings.TrimSpace(text))

	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.seen[key]
	duplicate := ok && now.Sub(last) < window

	t.seen[key] = now
	t.order = append(t.order, dedupEntry{key: key, seenAt: now})

	t.evict(window, now)
	return duplicate
}

// Len reports the number of live tracked texts.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// evict drops entries that fell out of the window, then enforces the
// ceiling in insertion order. Caller holds the lock.
func (t *Tracker) evict(window time.Duration, now time.Time) {
	keep := func(e dedupEntry) bool {
		last, ok := t.seen[e.key]
		// A refreshed key leaves stale queue entries behind; only the
		// newest one owns the map slot.
		return ok && last.Equal(e.seenAt)
	}

	for len(t.order) > 0 {
		head := t.order[0]
		if !keep(head) {
			t.order = t.order[1:]
			continue
		}
		if now.Sub(head.seenAt) >= window {
			delete(t.seen, head.key)
			t.order = t.order[1:]
			continue
		}
		break
	}

	for len(t.seen) > t.limit && len(t.order) > 0 {
		head := t.order[0]
		if keep(head) {
			delete(t.seen, head.key)
		}
		t.order = t.order[1:]
	}
}

package review

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultRetention bounds how long an idle pull request keeps its record.
const defaultRetention = 7 * 24 * time.Hour

type reviewRecord struct {
	headSHA  string
	lastSeen time.Time
}

// Tracker remembers the last reviewed commit per pull request so the two
// triggering paths (poll tick, webhook delivery) do not re-review unchanged
// code. State is process-local and lost on restart; the remote comment
// dedup is the second line of defense for that case.
type Tracker struct {
	mu        sync.Mutex
	retention time.Duration
	records   map[string]*reviewRecord
}

// NewTracker creates a tracker with the given retention window for idle
// records (zero means the 7-day default).
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Tracker{
		retention: retention,
		records:   make(map[string]*reviewRecord),
	}
}

func trackerKey(repo string, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

// ShouldReview reports whether headSHA differs from the last commit reviewed
// for this pull request (or no record exists yet).
func (t *Tracker) ShouldReview(repo string, number int, headSHA string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[trackerKey(repo, number)]
	if !ok {
		return true
	}
	rec.lastSeen = time.Now()
	return rec.headSHA != headSHA
}

// MarkReviewed records headSHA as the last reviewed commit for this pull
// request.
func (t *Tracker) MarkReviewed(repo string, number int, headSHA string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[trackerKey(repo, number)] = &reviewRecord{
		headSHA:  headSHA,
		lastSeen: time.Now(),
	}
}

// Sweep drops records idle longer than the retention window, bounding memory
// for long-lived processes watching many repositories. Returns the number of
// records removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.retention)
	removed := 0
	for key, rec := range t.records {
		if rec.lastSeen.Before(cutoff) {
			delete(t.records, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(t.records)).Msg("swept stale review records")
	}
	return removed
}

// Len returns the current record count.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

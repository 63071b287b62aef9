package leveling

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/disgoorg/snowflake/v2"
)

// MaxPointsPerBucket caps what one user can earn inside one five-minute
// bucket.
const MaxPointsPerBucket = 256

const dedupCacheSize = 4096

// ScoringTrack is the per-bucket scoring state of one ingestion lane.
// The engine runs two: one for live traffic and one for backfill, so a
// history replay cannot eat the live bucket budget.
type ScoringTrack struct {
	bucket int
	dedup  *lru.Cache
	earned map[snowflake.ID]int
}

func NewScoringTrack() *ScoringTrack {
	cache, err := lru.New(dedupCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &ScoringTrack{
		bucket: -1,
		dedup:  cache,
		earned: make(map[snowflake.ID]int),
	}
}

// Rollover moves the track to a new bucket, clearing the duplicate cache
// and the per-user accumulators. Reports whether a change happened.
func (t *ScoringTrack) Rollover(bucket int) bool {
	if bucket == t.bucket {
		return false
	}
	t.bucket = bucket
	t.dedup.Purge()
	t.earned = make(map[snowflake.ID]int)
	return true
}

// Seen reports whether the normalized content already appeared in this
// bucket.
func (t *ScoringTrack) Seen(normalized string) bool {
	return t.dedup.Contains(normalized)
}

// Remember records the normalized content in the duplicate cache.
func (t *ScoringTrack) Remember(normalized string) {
	t.dedup.Add(normalized, struct{}{})
}

// Credit applies the bucket cap to a candidate score and returns the
// points actually granted: the accumulator moves to
// min(cap, earned+candidate) and the delta is the grant.
func (t *ScoringTrack) Credit(userID snowflake.ID, candidate int) int {
	earned := t.earned[userID]
	next := earned + candidate
	if next > MaxPointsPerBucket {
		next = MaxPointsPerBucket
	}
	t.earned[userID] = next
	return next - earned
}

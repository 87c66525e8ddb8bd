package facts

import "time"

// DefaultMaxAge is the staleness threshold for persisted facts.
const DefaultMaxAge = 24 * time.Hour

// Fresh reports whether facts updated at the given time are still usable at
// now. A nil timestamp means facts were never derived and are always stale.
func Fresh(now time.Time, updatedAt *time.Time, maxAge time.Duration) bool {
	if updatedAt == nil || updatedAt.IsZero() {
		return false
	}
	return now.Sub(*updatedAt) <= maxAge
}

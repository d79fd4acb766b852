package taxonomy

import "time"

// SetClock replaces the resolver's notion of now.
func SetClock(r *Resolver, now func() time.Time) {
	r.now = now
}

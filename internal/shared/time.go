package shared

import "time"

// orNow substitutes the current UTC time for a zero timestamp. Callers of
// the trail and audit writers usually leave the timestamp unset.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

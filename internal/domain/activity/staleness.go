// internal/domain/activity/staleness.go
package activity

import "time"

// DefaultThresholdMinutes is 3 hours 30 minutes.
const DefaultThresholdMinutes = 3*60 + 30

const millisPerMinute = int64(time.Minute / time.Millisecond)

// Threshold is the number of minutes a pair may go without updates.
type Threshold int64

// IsStale reports whether elapsed minutes exceed the threshold.
// Exactly reaching the threshold is not stale.
func (t Threshold) IsStale(elapsedMinutes int64) bool {
	return elapsedMinutes > int64(t)
}

// ElapsedMinutes returns now - fetched in whole minutes, truncated toward zero.
// Computed on epoch milliseconds; time.Duration saturates past ~292 years.
func ElapsedMinutes(fetched, now time.Time) int64 {
	return (now.UnixMilli() - fetched.UnixMilli()) / millisPerMinute
}

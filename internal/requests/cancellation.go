package requests

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCancellationThreshold is how long before the scheduled time a booking
// can still be cancelled for free.
const DefaultCancellationThreshold = 24 * time.Hour

// CancellationPolicy decides whether a cancellation is free. It performs no I/O.
type CancellationPolicy struct {
	Threshold time.Duration
}

// NewCancellationPolicy falls back to DefaultCancellationThreshold for a zero threshold.
func NewCancellationPolicy(threshold time.Duration) CancellationPolicy {
	if threshold <= 0 {
		threshold = DefaultCancellationThreshold
	}
	return CancellationPolicy{Threshold: threshold}
}

// Deadline is the last instant (exclusive) at which cancelling is free.
func (p CancellationPolicy) Deadline(scheduled time.Time) time.Time {
	return scheduled.Add(-p.Threshold)
}

// CanCancelFree is true only while now is strictly before the deadline.
func (p CancellationPolicy) CanCancelFree(scheduled, now time.Time) bool {
	return now.Before(p.Deadline(scheduled))
}

// CalculateFee returns zero inside the free window and fee otherwise.
func (p CancellationPolicy) CalculateFee(scheduled, now time.Time, fee decimal.Decimal) decimal.Decimal {
	if p.CanCancelFree(scheduled, now) {
		return decimal.Zero
	}
	return fee.Round(2)
}

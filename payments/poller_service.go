package payments

import (
	"context"
	"log"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"

	DefaultPollAttempts = 10
	DefaultPollInterval = 5 * time.Second
)

// QueryFunc is the status lookup a poll loop repeats. Handlers pass a wrapper
// around MpesaClient.QueryStatus that also reconciles terminal results.
type QueryFunc func(ctx context.Context, checkoutRequestID string) (QueryResult, error)

// PollStatus repeatedly queries a push's outcome until it turns terminal, the
// attempt budget runs out, or ctx is cancelled. A timeout result only tells the
// caller to stop waiting; the stored transaction stays pending and can still be
// resolved by a late callback.
func PollStatus(ctx context.Context, query QueryFunc, checkoutRequestID string, maxAttempts int, interval time.Duration) QueryResult {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := query(ctx, checkoutRequestID)
		if err != nil {
			// Transient query failures count against the budget but do not
			// abort the loop; the callback path may still resolve the payment.
			log.Printf("Status poll %d/%d for %s failed: %v", attempt, maxAttempts, checkoutRequestID, err)
		} else if result.Status == StatusCompleted || result.Status == StatusFailed {
			return result
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return QueryResult{Status: StatusTimeout, ResultDesc: "Polling cancelled"}
		case <-time.After(interval):
		}
	}

	return QueryResult{Status: StatusTimeout, ResultDesc: "Payment status check timed out"}
}

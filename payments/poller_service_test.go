package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollStatus(t *testing.T) {
	t.Run("stops on completed", func(t *testing.T) {
		calls := 0
		query := func(ctx context.Context, id string) (QueryResult, error) {
			calls++
			if calls < 3 {
				return QueryResult{Status: StatusPending}, nil
			}
			return QueryResult{Status: StatusCompleted, ResultCode: "0"}, nil
		}

		result := PollStatus(context.Background(), query, "ws_CO_1", 5, time.Millisecond)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on failed", func(t *testing.T) {
		query := func(ctx context.Context, id string) (QueryResult, error) {
			return QueryResult{Status: StatusFailed, ResultCode: "1032", ResultDesc: "Request cancelled by user"}, nil
		}

		result := PollStatus(context.Background(), query, "ws_CO_1", 5, time.Millisecond)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, "1032", result.ResultCode)
	})

	t.Run("times out after the attempt budget", func(t *testing.T) {
		calls := 0
		query := func(ctx context.Context, id string) (QueryResult, error) {
			calls++
			return QueryResult{Status: StatusPending}, nil
		}

		result := PollStatus(context.Background(), query, "ws_CO_1", 4, time.Millisecond)
		assert.Equal(t, StatusTimeout, result.Status)
		assert.Equal(t, 4, calls)
	})

	t.Run("query errors count against the budget", func(t *testing.T) {
		calls := 0
		query := func(ctx context.Context, id string) (QueryResult, error) {
			calls++
			return QueryResult{}, errors.New("network down")
		}

		result := PollStatus(context.Background(), query, "ws_CO_1", 3, time.Millisecond)
		assert.Equal(t, StatusTimeout, result.Status)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancellation stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		query := func(ctx context.Context, id string) (QueryResult, error) {
			cancel()
			return QueryResult{Status: StatusPending}, nil
		}

		result := PollStatus(ctx, query, "ws_CO_1", 10, time.Minute)
		assert.Equal(t, StatusTimeout, result.Status)
		assert.Equal(t, "Polling cancelled", result.ResultDesc)
	})

	t.Run("defaults apply for non-positive settings", func(t *testing.T) {
		calls := 0
		query := func(ctx context.Context, id string) (QueryResult, error) {
			calls++
			return QueryResult{Status: StatusCompleted, ResultCode: "0"}, nil
		}

		result := PollStatus(context.Background(), query, "ws_CO_1", 0, 0)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, 1, calls)
	})
}

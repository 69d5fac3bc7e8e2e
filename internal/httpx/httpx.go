// Package httpx holds the retry and deadline helpers shared by the outbound fasthttp clients.
package httpx

import (
	"context"
	"time"
)

const maxBackoffStep = 6

// Deadline is now+timeout, or the context deadline when that comes sooner.
func Deadline(ctx context.Context, timeout time.Duration) time.Time {
	clientDL := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

// Sleep waits for d or until ctx is done, whichever is first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff doubles base per attempt, starting at base for attempt 1 and capping at the sixth step.
func Backoff(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxBackoffStep {
		attempt = maxBackoffStep
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

// Truncate cuts s to at most n bytes, for logging response bodies.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

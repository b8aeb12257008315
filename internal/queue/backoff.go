package queue

import "time"

const (
	BackoffBase = 60 * time.Second
	maxShift    = 16
)

// Backoff is BackoffBase * 2^attempt: 60s, 120s, 240s, 480s, ...
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}
	return BackoffBase << attempt
}

// Package ports declares the infrastructure capabilities the use cases
// depend on.
package ports

import (
	"context"
	"time"
)

// Clock supplies check timestamps and rate limiter time.
type Clock interface {
	Now() time.Time
}

// Logger is a leveled, key-value logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter throttles trace checks per client. The limit itself is
// configured on the implementation.
type RateLimiter interface {
	// Allow reports whether client may run one more check now.
	Allow(ctx context.Context, client string) bool
}

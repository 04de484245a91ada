package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by pgxpool.Pool and database handles alike.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabasePingCheck returns a CheckFunc that pings the database.
func DatabasePingCheck(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping database")
		}
		return nil
	}
}

// GoroutineCountCheck returns a CheckFunc that fails when the goroutine
// count exceeds threshold, which usually indicates a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

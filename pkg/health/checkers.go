package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by connection pools such as *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the result of p.Ping, labelled with name.
func PingCheck(name string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrapf(err, "ping %s", name)
		}
		return nil
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running,
// which usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when a stop-the-world GC pause that happened since
// the previous run exceeded threshold. Older pauses are not reported again.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	var lastNumGC atomic.Int64
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		// Pause is ordered most recent first.
		fresh := stats.NumGC - lastNumGC.Swap(stats.NumGC)
		if fresh > int64(len(stats.Pause)) {
			fresh = int64(len(stats.Pause))
		}
		for _, pause := range stats.Pause[:max(fresh, 0)] {
			if pause > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, threshold)
			}
		}
		return nil
	}
}

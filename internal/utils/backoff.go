package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/logger"
)

// Backoff describes how long to keep probing a dependency at startup.
type Backoff struct {
	Initial     time.Duration // first wait between attempts, doubled each time
	Max         time.Duration // cap for a single wait
	Total       time.Duration // give up after this long
	PingTimeout time.Duration // timeout of a single probe
	WarnAfter   int           // attempts logged as warnings before escalating to errors
}

// Validate rejects zero or negative durations.
func (b Backoff) Validate() error {
	switch {
	case b.Total <= 0:
		return fmt.Errorf("connect timeout must be > 0, got %v", b.Total)
	case b.Initial <= 0:
		return fmt.Errorf("retry interval must be > 0, got %v", b.Initial)
	case b.Max <= 0:
		return fmt.Errorf("max wait must be > 0, got %v", b.Max)
	case b.PingTimeout <= 0:
		return fmt.Errorf("ping timeout must be > 0, got %v", b.PingTimeout)
	case b.WarnAfter < 0:
		return fmt.Errorf("warn threshold must be >= 0, got %d", b.WarnAfter)
	}
	return nil
}

// WaitReady calls ping until it succeeds or the backoff window closes.
// name is the dependency label used in logs ("redis", "postgres").
func WaitReady(ctx context.Context, name string, b Backoff, ping func(context.Context) error, log logger.Logger) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.Total)
	defer cancel()

	log = log.With(logger.String("component", name))
	log.Info("waiting for dependency", logger.Duration("timeout", b.Total))

	start := time.Now()
	wait := b.Initial

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, b.PingTimeout)
		err := ping(pingCtx)
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("dependency ready after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("dependency ready")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("dependency unavailable, giving up",
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("%s unavailable after %d attempts (timeout: %v): %w", name, attempt, b.Total, err)

		case <-timer.C:
			logRetry(log, attempt, timeLeft(ctx), wait, b.WarnAfter, err)
			wait *= 2
			if wait > b.Max {
				wait = b.Max
			}
		}
	}
}

func logRetry(log logger.Logger, attempt int, remaining, next time.Duration, warnAfter int, err error) {
	switch {
	case remaining < 10*time.Second:
		log.Error("still down, timeout approaching",
			logger.Int("attempt", attempt),
			logger.Duration("remaining", remaining),
			logger.Duration("next_retry_in", next),
			logger.Error(err))
	case attempt <= warnAfter:
		log.Warn("connection failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", next),
			logger.Error(err))
	default:
		log.Error("still unavailable, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", next),
			logger.Error(err))
	}
}

func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}

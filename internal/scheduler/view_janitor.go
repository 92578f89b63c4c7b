package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/logger"
)

const (
	// DefaultIdleTTL is how long a view may go untouched before it is unmounted.
	DefaultIdleTTL = 30 * time.Minute
)

// ViewSweeper is implemented by session.Manager.
type ViewSweeper interface {
	Sweep(idleTTL time.Duration) int
	Count() int
}

// ViewJanitor periodically unmounts idle views so that views abandoned by
// their client do not keep a change subscription open forever.
type ViewJanitor struct {
	views    ViewSweeper
	logger   logger.Logger
	interval time.Duration
	idleTTL  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewViewJanitor(views ViewSweeper, log logger.Logger, interval, idleTTL time.Duration) *ViewJanitor {
	if idleTTL == 0 {
		idleTTL = DefaultIdleTTL
	}

	return &ViewJanitor{
		views:    views,
		logger:   log,
		interval: interval,
		idleTTL:  idleTTL,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop or ctx is done.
func (j *ViewJanitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Collect()
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the loop. Safe to call twice.
func (j *ViewJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Collect runs one sweep and returns the number of views unmounted.
func (j *ViewJanitor) Collect() int {
	swept := j.views.Sweep(j.idleTTL)

	if swept > 0 {
		j.logger.Info("idle views unmounted",
			logger.Int("swept", swept),
			logger.Int("remaining", j.views.Count()),
			logger.Duration("idle_ttl", j.idleTTL))
	} else {
		j.logger.Debug("no idle views to collect")
	}
	return swept
}

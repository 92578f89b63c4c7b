package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/logger"
)

func fastBackoff() Backoff {
	return Backoff{
		Initial:     time.Millisecond,
		Max:         5 * time.Millisecond,
		Total:       200 * time.Millisecond,
		PingTimeout: 50 * time.Millisecond,
		WarnAfter:   2,
	}
}

func TestWaitReadyRetriesUntilSuccess(t *testing.T) {
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	if err := WaitReady(context.Background(), "test", fastBackoff(), ping, logger.Nop()); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("ping called %d times, want 3", calls)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	b := fastBackoff()
	b.Total = 20 * time.Millisecond
	down := errors.New("down")

	err := WaitReady(context.Background(), "test", b, func(context.Context) error { return down }, logger.Nop())
	if !errors.Is(err, down) {
		t.Fatalf("WaitReady() error = %v, want wrapped ping error", err)
	}
}

func TestBackoffValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Backoff)
	}{
		{"zero total", func(b *Backoff) { b.Total = 0 }},
		{"zero initial", func(b *Backoff) { b.Initial = 0 }},
		{"zero max", func(b *Backoff) { b.Max = 0 }},
		{"zero ping timeout", func(b *Backoff) { b.PingTimeout = 0 }},
		{"negative warn", func(b *Backoff) { b.WarnAfter = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fastBackoff()
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

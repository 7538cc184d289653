package clock

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Window is the simulated processing delay between order admission and commit.
// Wait returns the duration it waited, or the context error if the wait was cut short.
type Window interface {
	Wait(ctx context.Context) (time.Duration, error)
}

type randomWindow struct {
	min, max int
	unit     time.Duration
}

// NewRandomWindow returns a window of min..max units (inclusive), uniformly chosen per call.
func NewRandomWindow(min, max int, unit time.Duration) (Window, error) {
	if min < 0 || max < min {
		return nil, errors.New("window bounds must satisfy 0 <= min <= max")
	}
	if unit <= 0 {
		return nil, errors.New("window unit must be positive")
	}
	return randomWindow{min: min, max: max, unit: unit}, nil
}

func (w randomWindow) Wait(ctx context.Context) (time.Duration, error) {
	d := time.Duration(w.min+rand.IntN(w.max-w.min+1)) * w.unit
	return d, Sleep(ctx, d)
}

type fixedWindow struct {
	d time.Duration
}

// NewFixedWindow returns a window that always waits d (useful for tests).
func NewFixedWindow(d time.Duration) Window {
	return fixedWindow{d: d}
}

func (w fixedWindow) Wait(ctx context.Context) (time.Duration, error) {
	return w.d, Sleep(ctx, w.d)
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

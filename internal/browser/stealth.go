package browser

import (
	"context"
	"math/rand"
	"time"
)

// Pacer produces the settle delays that follow clicks and navigation.
// They are the engine's only scheduling primitive besides bounded waits.
type Pacer struct {
	Base   time.Duration
	Jitter time.Duration
}

// Settle waits Base plus a random share of Jitter, or until ctx ends.
func (p Pacer) Settle(ctx context.Context) error {
	d := p.Base
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if d <= 0 {
		return ctx.Err()
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

// HumanScroll scrolls down in steps and back up a little, which is what
// triggers lazy loading of result cards.
func HumanScroll(ctx context.Context, s Session, steps int, pacer Pacer) error {
	for i := 0; i < steps; i++ {
		if err := s.Wheel(400); err != nil {
			return err
		}
		if err := pacer.Settle(ctx); err != nil {
			return err
		}
	}
	return s.Wheel(-200)
}

// Package backoffx provides the retry delay strategies used by the
// provisioning flows. The two shapes are deliberately separate: detection
// retries use Gaussian jitter so repeated checks don't exhibit a flat,
// artificial timing signature, while verification polling uses plain
// doubling to respect identity provider rate limits.
package backoffx

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy yields the delay to apply before a retry. attempt is 1-based:
// attempt 1 is the delay before the second try.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Slot holds the distribution parameters for one retry slot.
type Slot struct {
	Mean   time.Duration
	StdDev time.Duration
}

// Gaussian draws each delay from a normal distribution with per-slot
// parameters, floored at zero. Retries past the last slot reuse it.
type Gaussian struct {
	Slots []Slot

	// Rand is the uniform source used for sampling. Nil uses the shared
	// math/rand/v2 source. Inject a seeded source in tests.
	Rand *rand.Rand
}

func (g Gaussian) Delay(attempt int) time.Duration {
	if attempt < 1 || len(g.Slots) == 0 {
		return 0
	}

	slot := g.Slots[min(attempt, len(g.Slots))-1]
	d := time.Duration(float64(slot.Mean) + g.norm()*float64(slot.StdDev))
	if d < 0 {
		d = 0
	}
	return d
}

// norm draws a standard normal variate using the Marsaglia polar method.
func (g Gaussian) norm() float64 {
	for {
		u := 2*g.uniform() - 1
		v := 2*g.uniform() - 1
		s := u*u + v*v
		if s > 0 && s < 1 {
			return u * math.Sqrt(-2*math.Log(s)/s)
		}
	}
}

func (g Gaussian) uniform() float64 {
	if g.Rand != nil {
		return g.Rand.Float64()
	}
	return rand.Float64()
}

// Doubling doubles Base per attempt, capped at Cap. The delay depends only
// on the attempt count, never on wall clock.
type Doubling struct {
	Base time.Duration
	Cap  time.Duration
}

func (d Doubling) Delay(attempt int) time.Duration {
	if attempt < 1 || d.Base <= 0 {
		return 0
	}

	// Shift guard: beyond 62 doublings we'd overflow anyway.
	shift := attempt - 1
	if shift > 30 {
		return d.Cap
	}

	delay := d.Base << shift
	if d.Cap > 0 && delay > d.Cap {
		return d.Cap
	}
	return delay
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

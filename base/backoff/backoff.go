package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

type Strategy interface {
	Duration(count int, start time.Duration) time.Duration
}

// Backoff sleeps an increasing duration between attempts, capped by limit.
// It is not safe for concurrent use.
type Backoff struct {
	LastDuration time.Duration
	NextDuration time.Duration
	start        time.Duration
	limit        time.Duration
	jitter       float64
	count        int
	strategy     Strategy
	rnd          *rand.Rand
}

func New(strategy Strategy, start, limit time.Duration) *Backoff {
	b := &Backoff{
		strategy: strategy,
		start:    start,
		limit:    limit,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	b.Reset()
	return b
}

// WithJitter adds up to frac of every duration at random.
func (b *Backoff) WithJitter(frac float64) *Backoff {
	b.jitter = frac
	b.NextDuration = b.next()
	return b
}

func (b *Backoff) Count() int {
	return b.count
}

func (b *Backoff) Reset() {
	b.count = 0
	b.LastDuration = 0
	b.NextDuration = b.next()
}

// Wait sleeps NextDuration and advances. It returns ctx.Err() if ctx ends
// first.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.NextDuration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	b.count++
	b.LastDuration = b.NextDuration
	b.NextDuration = b.next()
	return nil
}

func (b *Backoff) next() time.Duration {
	d := b.strategy.Duration(b.count, b.start)
	if b.limit > 0 && d > b.limit {
		d = b.limit
	}
	if b.jitter > 0 && b.rnd != nil {
		d += time.Duration(b.rnd.Float64() * b.jitter * float64(d))
	}
	return d
}

type exponential struct{}

func (exponential) Duration(count int, start time.Duration) time.Duration {
	return time.Duration(math.Pow(2, float64(count))) * start
}

func NewExponential(start, limit time.Duration) *Backoff {
	return New(exponential{}, start, limit)
}

type linear struct{}

func (linear) Duration(count int, start time.Duration) time.Duration {
	return time.Duration(count+1) * start
}

func NewLinear(start, limit time.Duration) *Backoff {
	return New(linear{}, start, limit)
}

// Retry calls fn until it succeeds, attempts run out or ctx ends. onErr, if
// set, sees every failure.
func Retry(ctx context.Context, b *Backoff, attempts int, fn func() error, onErr func(attempt int, err error)) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if werr := b.Wait(ctx); werr != nil {
				return werr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if onErr != nil {
			onErr(attempt, err)
		}
	}
	return err
}

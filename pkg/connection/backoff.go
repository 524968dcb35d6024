package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Default backoff parameters.
const (
	// DefaultBackoffBase is the initial reconnection delay.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultBackoffCap is the maximum reconnection delay.
	DefaultBackoffCap = 30 * time.Second

	// DefaultMultiplier is the factor by which backoff increases.
	DefaultMultiplier = 2.0

	// DefaultJitterFactor is the maximum jitter as a fraction of the
	// base delay.
	DefaultJitterFactor = 0.25

	// DefaultMaxAttempts is the default reconnection attempt budget.
	DefaultMaxAttempts = 5
)

// Policy describes one bounded reconnection budget.
type Policy struct {
	// Base is the initial delay.
	Base time.Duration

	// Cap is the maximum delay.
	Cap time.Duration

	// Multiplier is the growth factor between attempts.
	Multiplier float64

	// Jitter is the maximum jitter as a fraction of the base delay.
	// Zero disables jitter; negative values are treated as zero.
	Jitter float64

	// MaxAttempts is the attempt budget. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// DefaultPolicy returns the default reconnection policy.
func DefaultPolicy() Policy {
	return Policy{
		Base:        DefaultBackoffBase,
		Cap:         DefaultBackoffCap,
		Multiplier:  DefaultMultiplier,
		Jitter:      DefaultJitterFactor,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// normalized returns the policy with zero values replaced by defaults.
func (p Policy) normalized() Policy {
	if p.Base <= 0 {
		p.Base = DefaultBackoffBase
	}
	if p.Cap <= 0 {
		p.Cap = DefaultBackoffCap
	}
	if p.Multiplier <= 1 {
		p.Multiplier = DefaultMultiplier
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// Backoff calculates exponential backoff delays with jitter.
type Backoff struct {
	mu sync.Mutex

	// Current backoff delay (before jitter)
	current time.Duration

	policy Policy

	// Attempt counter
	attempts int

	// Random source for jitter
	rng *rand.Rand
}

// NewBackoff creates a backoff calculator for the given policy.
func NewBackoff(policy Policy) *Backoff {
	policy = policy.normalized()
	return &Backoff{
		current: policy.Base,
		policy:  policy,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)

	b.attempts++
	next := time.Duration(float64(b.current) * b.policy.Multiplier)
	if next > b.policy.Cap {
		next = b.policy.Cap
	}
	b.current = next

	return delay
}

// Exhausted reports whether the attempt budget has been spent.
func (b *Backoff) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts >= b.policy.MaxAttempts
}

// Reset resets the backoff to initial values.
// Call this after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.policy.Base
	b.attempts = 0
}

// Attempts returns the number of attempts since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the current base delay (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// addJitter adds random jitter to a delay.
func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.policy.Jitter <= 0 {
		return d
	}
	jitterAmount := time.Duration(float64(d) * b.policy.Jitter * b.rng.Float64())
	return d + jitterAmount
}

package cache

import (
	"errors"
	"sync"
	"time"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 5, Cooldown: 30 * time.Second}
}

// Breaker stops calling redis after MaxFailures consecutive errors and lets a
// single probe through once Cooldown has passed.
type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
	probing     bool
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{maxFailures: config.MaxFailures, cooldown: config.Cooldown, now: time.Now}
}

func (b *Breaker) Execute(fn func() error) error {
	if !b.acquire() {
		return ErrBreakerOpen
	}
	err := fn()
	b.release(err)
	return err
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// release counts cache misses as successes: only transport errors trip the breaker.
func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
		return
	}
	b.failures = 0
	b.state = BreakerClosed
}

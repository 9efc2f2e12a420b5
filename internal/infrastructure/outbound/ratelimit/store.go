package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*TokenBucketStore)(nil)

// Limit is the token bucket given to every client. A Rate of zero or less
// disables limiting.
type Limit struct {
	Rate  float64 // checks per second
	Burst int
}

func (l Limit) disabled() bool { return l.Rate <= 0 }

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// TokenBucketStore keeps one token bucket per client. Buckets idle for
// longer than the TTL are evicted.
type TokenBucketStore struct {
	mu       sync.Mutex
	limit    Limit
	buckets  map[string]*bucket
	ttl      time.Duration
	clock    ports.Clock
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketStore creates a store and starts a background goroutine that
// evicts idle buckets every TTL interval. Call Stop to terminate it.
func NewTokenBucketStore(limit Limit, ttl time.Duration, clock ports.Clock) *TokenBucketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &TokenBucketStore{
		limit:   limit,
		buckets: make(map[string]*bucket),
		ttl:     ttl,
		clock:   clock,
		stop:    make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Stop terminates the background eviction goroutine. It is safe to call
// more than once.
func (s *TokenBucketStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *TokenBucketStore) evictLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// Limit returns the current per-client limit.
func (s *TokenBucketStore) Limit() Limit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// SetLimit changes the limit for new and existing clients. Tokens already
// in a bucket are kept up to the new burst.
func (s *TokenBucketStore) SetLimit(l Limit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limit = l
	if l.disabled() {
		clear(s.buckets)
		return
	}
	now := s.clock.Now()
	for _, b := range s.buckets {
		b.limiter.SetLimitAt(now, rate.Limit(l.Rate))
		b.limiter.SetBurstAt(now, l.Burst)
	}
}

// Allow reports whether client may run one more check.
func (s *TokenBucketStore) Allow(_ context.Context, client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit.disabled() {
		return true
	}

	now := s.clock.Now()
	b, ok := s.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(s.limit.Rate), s.limit.Burst)}
		s.buckets[client] = b
	}
	b.lastUsed = now
	return b.limiter.AllowN(now, 1)
}

// Evict removes buckets idle for longer than the TTL.
func (s *TokenBucketStore) Evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-s.ttl)
	for client, b := range s.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(s.buckets, client)
		}
	}
}

// Len returns the number of tracked clients.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Package middleware provides the HTTP middleware chain of the storefront API.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/response"
)

// LimitStore counts requests per key within a fixed window.
type LimitStore interface {
	// Hit records one request for key and returns the count in the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// bucket tracks a fixed-window request count for one key.
type bucket struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. Expired buckets are evicted
// once a minute until Stop is called.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		buckets: map[string]*bucket{},
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.evictLoop(time.Minute)
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

// Stop ends the eviction goroutine.
func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

func (s *MemoryStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, b := range s.buckets {
		if now.After(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}

// Counter is the Redis side of RedisStore; *cache.Client satisfies it.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisStore shares counters across instances through Redis INCR/EXPIRE.
type RedisStore struct {
	counter Counter
	prefix  string
}

func NewRedisStore(counter Counter) *RedisStore {
	return &RedisStore{counter: counter, prefix: "ratelimit:"}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.counter.Incr(ctx, s.prefix+key, window)
}

// RateLimit limits each client IP to max requests per window within scope.
// Different scopes ("api", "chat") count independently. A store failure lets
// the request through.
func RateLimit(store LimitStore, scope string, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, err := store.Hit(r.Context(), scope+":"+clientIP(r), window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("rate limit store unavailable", "error", err)
			} else if n > int64(max) {
				w.Header().Set("Retry-After", window.String())
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

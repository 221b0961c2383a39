package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// memoryLimiter is a token-bucket limiter. Each key holds a single
// bucket, so space is O(1) per key; tokens refill at capacity/window.
type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config

	cleanupT *time.Ticker
	stopCh   chan struct{}
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMemoryLimiter creates an in-memory token-bucket limiter.
func NewMemoryLimiter(cfg Config) Limiter {
	l := &memoryLimiter{
		buckets: make(map[string]*bucket),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
	l.cleanupT = time.NewTicker(cfg.Window * 2)
	go l.cleanupLoop()
	return l
}

func (l *memoryLimiter) Allow(key string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	capacity := float64(l.config.Requests)
	fillRate := capacity / l.config.Window.Seconds()

	b, exists := l.buckets[key]
	if !exists {
		l.buckets[key] = &bucket{tokens: capacity - 1, lastUpdate: now}
		return true
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = min(capacity, b.tokens+elapsed*fillRate)
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *memoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// cleanupLoop evicts buckets idle for more than two windows.
func (l *memoryLimiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanupT.C:
			l.mu.Lock()
			threshold := l.config.Window * 2
			now := time.Now()
			for key, b := range l.buckets {
				if now.Sub(b.lastUpdate) > threshold {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			l.cleanupT.Stop()
			return
		}
	}
}

// Stop halts the cleanup goroutine.
func (l *memoryLimiter) Stop() {
	close(l.stopCh)
}

var _ Stoppable = (*memoryLimiter)(nil)

// GetClientIP extracts the client IP from the request, preferring
// proxy headers over the socket address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

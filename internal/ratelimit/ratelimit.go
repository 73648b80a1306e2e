// Package ratelimit provides fixed-window request limiters keyed by client.
//
// Memory keeps counters in-process. Redis shares them across server
// instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Window() time.Duration
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// NewMemory creates a limiter allowing rate requests per window per key.
// Stale entries are swept in the background until Close is called.
func NewMemory(rate int, window time.Duration) *Memory {
	if window <= 0 {
		window = time.Minute
	}
	m := &Memory{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Window returns the limiter's window length.
func (m *Memory) Window() time.Duration {
	return m.window
}

// Allow consumes one token for key if any remain in the current window.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	v, exists := m.visitors[key]
	if !exists || now.Sub(v.lastReset) >= m.window {
		m.visitors[key] = &visitor{tokens: m.rate - 1, lastReset: now}
		return m.rate > 0, nil
	}

	if v.tokens <= 0 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// Close stops the background sweep.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// cleanup removes visitors idle for more than two windows.
func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, v := range m.visitors {
		if now.Sub(v.lastReset) > m.window*2 {
			delete(m.visitors, key)
		}
	}
}

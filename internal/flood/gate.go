// Package flood provides outbound request throttling for scraping targets.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for rate accounting (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle host entries
	idleTimeout = 10 * time.Minute
)

// Gate provides per-host rate limiting with a sliding window. Scrape traffic
// must stay polite or the target starts serving captchas.
type Gate struct {
	limitPerMinute int                   // Maximum requests per host per minute
	entries        map[string]*hostEntry // Key: target host
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

// hostEntry tracks request timestamps for a specific target host
type hostEntry struct {
	timestamps []time.Time // Sliding window of request timestamps
	lastSeen   time.Time   // When this host was last requested (for cleanup)
}

// New creates a new Gate with the specified per-host request budget.
// The time window is fixed at 60 seconds (1 minute)
func New(limitPerMinute int) *Gate {
	g := &Gate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*hostEntry),
		stopCleanup:    make(chan struct{}),
	}

	// Start background cleanup goroutine
	go g.cleanup()

	return g
}

// Stop stops the background cleanup goroutine
func (g *Gate) Stop() {
	close(g.stopCleanup)
}

// Allow checks whether another request to the specified host fits the budget.
// Returns true if the request may proceed, false if it should be dropped
func (g *Gate) Allow(host string) bool {
	now := time.Now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Get or create host entry
	entry, exists := g.entries[host]
	if !exists {
		entry = &hostEntry{
			timestamps: make([]time.Time, 0, g.limitPerMinute+1),
		}
		g.entries[host] = entry
	}

	// Update last seen time
	entry.lastSeen = now

	// Remove timestamps outside the window
	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0] // Reuse slice capacity
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	// Check if the host budget is exhausted
	if len(entry.timestamps) >= g.limitPerMinute {
		return false
	}

	// Add current timestamp and allow the request
	entry.timestamps = append(entry.timestamps, now)
	return true
}

// cleanup removes idle host entries to prevent memory leaks
func (g *Gate) cleanup() {
	// Run immediately on startup
	g.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.performCleanup()
		case <-g.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that have been idle for too long
func (g *Gate) performCleanup() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for host, entry := range g.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(g.entries, host)
		}
	}
}

// GetStats returns statistics about the gate for monitoring/debugging
func (g *Gate) GetStats() Stats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return Stats{
		ActiveHosts:    len(g.entries),
		LimitPerMinute: g.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()), // Fixed 1-minute window
	}
}

// Stats contains gate statistics
type Stats struct {
	ActiveHosts    int `json:"active_hosts"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}

// Package metering tracks connection and logged-in-user counts as the hub
// creates and destroys them, giving operators continuously-updated figures
// to go alongside the point-in-time RequestUserCount packet moderators can
// query from inside the chat itself.
package metering

import "sync"

// EventKind distinguishes the lifecycle points the hub reports.
type EventKind string

const (
	EventConnectionOpened EventKind = "connection_opened"
	EventConnectionClosed EventKind = "connection_closed"
	EventUserSessionStarted EventKind = "active_user_start"
	EventUserSessionEnded   EventKind = "active_user_end"
)

// Collector accumulates connection and active-user counters as the hub
// reports lifecycle events. It holds no chat content, only counts.
type Collector struct {
	mu                sync.Mutex
	connectionCount   int
	activeUserCount   int
	totalConnections  uint64
	totalUserSessions uint64
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record applies one lifecycle event to the running counters.
func (c *Collector) Record(kind EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case EventConnectionOpened:
		c.connectionCount++
		c.totalConnections++
	case EventConnectionClosed:
		c.connectionCount--
	case EventUserSessionStarted:
		c.activeUserCount++
		c.totalUserSessions++
	case EventUserSessionEnded:
		c.activeUserCount--
	}
}

// ActiveConnectionCount returns the number of currently open connections.
func (c *Collector) ActiveConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionCount
}

// ActiveUserCount returns the number of distinct logged-in users.
func (c *Collector) ActiveUserCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeUserCount
}

// Totals returns lifetime connection and user-session counts since the
// collector was created, for the diagnostics bundle.
func (c *Collector) Totals() (connections, userSessions uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalConnections, c.totalUserSessions
}

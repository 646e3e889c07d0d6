// Package diagnostics builds a support bundle an operator can attach to a
// bug report: hub health counters and basic runtime facts, never chat
// message content.
package diagnostics

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rjsadow/axochat/internal/metering"
)

// HubStats is the subset of hub state the bundle reports. The hub
// implements this directly rather than diagnostics reaching into hub
// internals.
type HubStats interface {
	ConnectionCount() int
	LoggedInCount() int
	BannedCount() int
	ModeratorCount() int
}

// Collector gathers a Bundle on demand.
type Collector struct {
	hub      HubStats
	metering *metering.Collector
	started  time.Time
}

// NewCollector creates a Collector reporting on hub and metering as of
// startedAt.
func NewCollector(hub HubStats, m *metering.Collector, startedAt time.Time) *Collector {
	return &Collector{hub: hub, metering: m, started: startedAt}
}

// SystemInfo is static runtime environment information.
type SystemInfo struct {
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	NumCPU    int    `json:"num_cpu"`
}

// HealthSummary is the hub's current live state.
type HealthSummary struct {
	Uptime         string  `json:"uptime"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Connections    int     `json:"connections"`
	LoggedInUsers  int     `json:"logged_in_users"`
	BannedCount    int     `json:"banned_count"`
	ModeratorCount int     `json:"moderator_count"`
	LifetimeConns  string  `json:"lifetime_connections"`
	LifetimeSess   string  `json:"lifetime_user_sessions"`
}

// Bundle is the full diagnostics snapshot.
type Bundle struct {
	GeneratedAt time.Time     `json:"generated_at"`
	System      SystemInfo    `json:"system"`
	Health      HealthSummary `json:"health"`
}

// Generate snapshots current hub and system state.
func (c *Collector) Generate() *Bundle {
	uptime := time.Since(c.started)

	var lifetimeConns, lifetimeSessions string
	if c.metering != nil {
		conns, sessions := c.metering.Totals()
		lifetimeConns = humanize.Comma(int64(conns))
		lifetimeSessions = humanize.Comma(int64(sessions))
	}

	return &Bundle{
		GeneratedAt: time.Now(),
		System: SystemInfo{
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
		},
		Health: HealthSummary{
			Uptime:         humanize.RelTime(c.started, time.Now(), "", ""),
			UptimeSeconds:  uptime.Seconds(),
			Connections:    c.hub.ConnectionCount(),
			LoggedInUsers:  c.hub.LoggedInCount(),
			BannedCount:    c.hub.BannedCount(),
			ModeratorCount: c.hub.ModeratorCount(),
			LifetimeConns:  lifetimeConns,
			LifetimeSess:   lifetimeSessions,
		},
	}
}

// WriteBundle writes a gzip-compressed tar archive containing a single
// bundle.json entry to w.
func (c *Collector) WriteBundle(w io.Writer) error {
	data, err := json.MarshalIndent(c.Generate(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagnostics bundle: %w", err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	header := &tar.Header{
		Name: "bundle.json",
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write bundle header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write bundle body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}

// Package replay drives a running server with concurrent moment PBP
// traffic and checks every timeline it gets back.
package replay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Moments  int           // Number of distinct moments to request
	Sessions int           // Number of concurrent sessions
	Prefetch bool          // Warm each moment with POST /prefetch first
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Log every moment
}

// Stats holds replay statistics.
type Stats struct {
	MomentsRequested int
	Prefetched       int
	PrefetchDup      int
	Loaded           int
	LoadFailed       int
	Violations       int
	EventsReceived   int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

package core

import (
	"context"
	"time"
)

// Environment is a multi-arena training environment driven episode by
// episode.
type Environment interface {
	// Reset rebuilds every arena's spawners from its current configuration
	Reset() error
	// Simulate advances the virtual clock by d
	Simulate(d time.Duration) error
	// Run drives the environment against wall time for d or until ctx ends
	Run(ctx context.Context, d time.Duration) error
	// GetState returns a snapshot of the environment
	GetState() State
	// Close stops all spawners and releases the configuration channel
	Close() error
}

// Runner coordinates a sequence of episodes
type Runner interface {
	// Run executes the episodes according to configuration
	Run(ctx context.Context) error
	// Stop gracefully stops the run
	Stop() error
	// GetStatus returns current run status
	GetStatus() Status
}

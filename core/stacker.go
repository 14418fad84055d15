package core

import (
	"context"
)

// Stacker defines the interface for reassembling a downloaded NEON data
// package into one table per logical data table.
type Stacker interface {
	// Stack reads the package under folder and returns the stacked bundle
	Stack(ctx context.Context, folder string) (*Bundle, error)

	// Initialize sets up the stacker
	Initialize() error

	// Close releases resources
	Close() error
}

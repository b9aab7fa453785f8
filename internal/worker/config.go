// Package worker provides background job processing for parkwise.
package worker

import (
	"time"
)

// ImportConfig holds configuration for catalogue import jobs.
type ImportConfig struct {
	// Concurrency is the number of spots decoded and validated in parallel.
	// Default: 4
	Concurrency int

	// Timeout bounds each store write.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxSpots rejects batches larger than this outright.
	// Default: 5000
	MaxSpots int
}

// DefaultImportConfig returns the default import configuration.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Concurrency: 4,
		Timeout:     10 * time.Second,
		MaxSpots:    5000,
	}
}

func (c ImportConfig) withDefaults() ImportConfig {
	def := DefaultImportConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxSpots <= 0 {
		c.MaxSpots = def.MaxSpots
	}
	return c
}

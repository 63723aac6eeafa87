// Package storage persists collector runs to disk and uploads merged
// records to external sinks.
package storage

import (
	"context"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Sink is a destination for merged review records.
type Sink interface {
	// Upload persists a batch of records.
	Upload(ctx context.Context, records []types.ReviewRecord) error

	// Close releases the sink's resources.
	Close(ctx context.Context) error

	// Name returns the sink identifier.
	Name() string
}

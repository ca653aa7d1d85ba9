package persist

import (
	"context"

	"dealroom/internal/domain"
)

// Persister is the durable snapshot side-channel. Last full snapshot wins,
// not versioned. Load returns nil with no error when no snapshot exists.
//
// The store treats Save as best-effort: a failure is logged by the caller and
// the in-memory snapshot stays authoritative.
type Persister interface {
	Save(ctx context.Context, dealID string, snap domain.Snapshot) error
	Load(ctx context.Context, dealID string) (*domain.Snapshot, error)
}

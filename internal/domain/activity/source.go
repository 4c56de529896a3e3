// internal/domain/activity/source.go
package activity

import (
	"context"
	"time"
)

// Source reports when a region/bracket ladder was last updated.
// This decouples the health check from the concrete HTTP API.
type Source interface {
	LastUpdated(ctx context.Context, region, bracket string) (time.Time, error)
}

// Package session keeps the last detected plate per browser session for a
// short time, so a later form can be pre-filled with it.
package session

import (
	"context"
	"time"
)

// DefaultTTL is how long an entry survives without being refreshed.
const DefaultTTL = 10 * time.Minute

// Entry is the stored result of one successful detection.
type Entry struct {
	Plate      string    `json:"plate"`
	Confidence float64   `json:"confidence"`
	DetectedAt time.Time `json:"detected_at"`
}

// Store holds entries keyed by session id. Get reports false for missing
// and expired entries; that is not an error.
type Store interface {
	Put(ctx context.Context, id string, e Entry) error
	Get(ctx context.Context, id string) (Entry, bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

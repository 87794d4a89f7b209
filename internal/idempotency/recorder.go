package idempotency

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/cache"
)

// DefaultRetention is how long an applied mutation result is kept for replay
const DefaultRetention = 24 * time.Hour

const recorderKeyPrefix = "idempotency:"

// Recorder remembers the result of an applied mutation keyed by its
// idempotency key. A resend of the same key returns the recorded result
// instead of applying the mutation a second time.
type Recorder interface {
	// Lookup returns the recorded result for the key, if any
	Lookup(ctx context.Context, key string) (interface{}, bool)

	// Record stores the result of an applied mutation under the key
	Record(ctx context.Context, key string, result interface{})
}

type cacheRecorder struct {
	cache     cache.Cache
	retention time.Duration
}

// NewRecorder creates a Recorder backed by the given cache
func NewRecorder(c cache.Cache) Recorder {
	return &cacheRecorder{
		cache:     c,
		retention: DefaultRetention,
	}
}

func (r *cacheRecorder) Lookup(ctx context.Context, key string) (interface{}, bool) {
	if key == "" {
		return nil, false
	}
	return r.cache.Get(ctx, recorderKeyPrefix+key)
}

func (r *cacheRecorder) Record(ctx context.Context, key string, result interface{}) {
	if key == "" {
		return
	}
	r.cache.Set(ctx, recorderKeyPrefix+key, result, r.retention)
}

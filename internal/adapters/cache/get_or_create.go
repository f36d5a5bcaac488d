package cache

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/logging"
)

// GetOrCreate returns the cached value for key, calling create on a miss.
// Concurrent callers for the same key wait for the first one instead of calling create themselves.
func GetOrCreate[T any](ctx context.Context, cache Cache[T], key string, create func() (T, error)) (T, error) {
	// Clean up the cache if we claim an entry, but don't set it
	// This allows other callers to try again
	claimed := false
	set := false
	defer func() {
		if claimed && !set {
			cache.delete(key)
		}
	}()

	for {
		result := cache.getOrClaim(key)

		if result.claimed {
			claimed = true

			logging.FromContext(ctx).InfoContext(ctx, "Getting cached value", "key", key, "cache", "miss")

			data, err := create()
			if err != nil {
				var empty T
				return empty, fmt.Errorf("failed to create cache entry: %w", err)
			}

			cache.set(key, data)
			set = true

			return data, nil
		}

		if result.valid {
			logging.FromContext(ctx).InfoContext(ctx, "Getting cached value", "key", key, "cache", "hit")
			return result.data, nil
		}

		if err := ctx.Err(); err != nil {
			var empty T
			return empty, fmt.Errorf("gave up waiting for cache: %w", err)
		}

		cache.wait()
	}
}

package cache

import (
	"time"
)

// CacheService is the short-lived cache behind the scraper's fetch
// block gate. Keys expire on their own; callers treat a miss as "not
// blocked".
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

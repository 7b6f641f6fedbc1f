// Package decision decides which decoded cells are worth promoting to Redis.
package decision

import "time"

type Interface interface {
	ShouldCache(keys []string) bool
	TTL(key string) time.Duration
}

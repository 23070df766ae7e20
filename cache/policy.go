package cache

import (
	"errors"
	"time"
)

// Defaults for upstream response caching.
const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 100
)

// Policy configures caching behavior.
type Policy struct {
	// TTL is how long an entry stays fresh after Set.
	// If zero, caching is disabled.
	TTL time.Duration

	// MaxEntries bounds the number of stored entries.
	// If zero, caching is disabled.
	MaxEntries int
}

// DefaultPolicy returns the default caching policy.
// TTL: 300 seconds, MaxEntries: 100
func DefaultPolicy() Policy {
	return Policy{
		TTL:        DefaultTTL,
		MaxEntries: DefaultMaxEntries,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.TTL > 0 && p.MaxEntries > 0
}

// Validate rejects negative settings.
func (p Policy) Validate() error {
	if p.TTL < 0 {
		return errors.New("cache: ttl must be >= 0")
	}
	if p.MaxEntries < 0 {
		return errors.New("cache: max entries must be >= 0")
	}
	return nil
}

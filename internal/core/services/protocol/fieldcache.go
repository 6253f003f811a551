package protocol

import (
	"fmt"
	"strings"
)

// CacheHitPolicy decides what a serializer does when a requested field is
// already in the per-call cache, which happens when a request names the same
// field twice.
type CacheHitPolicy int

const (
	// StopOnCacheHit emits the cached value and ends the response there.
	StopOnCacheHit CacheHitPolicy = iota
	// ContinueOnCacheHit emits the cached value and carries on.
	ContinueOnCacheHit
)

func (p CacheHitPolicy) String() string {
	if p == ContinueOnCacheHit {
		return "continue"
	}
	return "stop"
}

// ParseCacheHitPolicy accepts "stop" or "continue". Empty means stop.
func ParseCacheHitPolicy(s string) (CacheHitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop":
		return StopOnCacheHit, nil
	case "continue":
		return ContinueOnCacheHit, nil
	default:
		return StopOnCacheHit, fmt.Errorf("invalid cache hit policy %q", s)
	}
}

// FieldCache memoizes rendered fields for a single serialization call. It is
// not safe for concurrent use and must not be shared between consumers.
type FieldCache struct {
	values map[int]string
}

// NewFieldCache returns an empty cache.
func NewFieldCache() *FieldCache {
	return &FieldCache{values: make(map[int]string)}
}

// Get returns the cached rendering of field fnum.
func (c *FieldCache) Get(fnum int) (string, bool) {
	v, ok := c.values[fnum]
	return v, ok
}

// Set stores the rendering of field fnum.
func (c *FieldCache) Set(fnum int, v string) {
	c.values[fnum] = v
}

// Len returns the number of cached fields.
func (c *FieldCache) Len() int {
	return len(c.values)
}

// Package cache provides the status cache: a time-bounded, invalidate-on-write
// map from task ID to last known status. It is never the source of truth and
// is always reconstructable from the task store.
package cache

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mwhitlock/taskpipe/internal/domain"
)

// DefaultTTL is the status entry lifetime, measured from write.
const DefaultTTL = 5 * time.Minute

// StatusCache maps task IDs to their last known status.
// Version: 1.0
type StatusCache interface {
	// Get returns the cached status for the task ID, if present and unexpired.
	Get(id int64) (domain.TaskStatus, bool)

	// Put stores the status for the task ID, resetting its expiry.
	Put(id int64, status domain.TaskStatus)

	// Evict removes the entry for the task ID. Called synchronously as part
	// of every status-mutating store write so cache and store never diverge
	// for longer than the write itself.
	Evict(id int64)
}

// TTLStatusCache implements StatusCache with a write-based TTL: entries
// expire a fixed duration after they were written regardless of reads.
type TTLStatusCache struct {
	entries *gocache.Cache
}

// NewTTLStatusCache creates a status cache whose entries expire ttl after
// each write. A non-positive ttl falls back to DefaultTTL.
func NewTTLStatusCache(ttl time.Duration) *TTLStatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLStatusCache{
		entries: gocache.New(ttl, ttl),
	}
}

// Ensure TTLStatusCache implements the StatusCache interface
var _ StatusCache = (*TTLStatusCache)(nil)

// Get returns the cached status for the task ID, if present and unexpired.
func (c *TTLStatusCache) Get(id int64) (domain.TaskStatus, bool) {
	v, ok := c.entries.Get(cacheKey(id))
	if !ok {
		return "", false
	}
	return v.(domain.TaskStatus), true
}

// Put stores the status for the task ID with the cache's default expiry.
func (c *TTLStatusCache) Put(id int64, status domain.TaskStatus) {
	c.entries.SetDefault(cacheKey(id), status)
}

// Evict removes the entry for the task ID, if any.
func (c *TTLStatusCache) Evict(id int64) {
	c.entries.Delete(cacheKey(id))
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

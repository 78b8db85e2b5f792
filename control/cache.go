package control

import (
	"strings"
	"sync"
)

// cacheEntry is either a scalar GETINFO value or a GETCONF value list,
// never both.
type cacheEntry struct {
	scalar string
	list   ConfValues
	isList bool
}

// requestCache is a plain map of namespaced, lowercased keys to cached
// results, guarded by its own mutex. There is no TTL: entries live for
// the connection's lifetime and are cleared on reconnect or explicit
// invalidation.
type requestCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	geoIPFailures int
}

func newRequestCache() *requestCache {
	return &requestCache{entries: make(map[string]cacheEntry)}
}

func getInfoCacheKey(key string) string {
	return "getinfo." + strings.ToLower(key)
}

func getConfCacheKey(key string) string {
	return "getconf." + strings.ToLower(key)
}

func (c *requestCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.geoIPFailures = 0
}

func (c *requestCache) getInfo(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[getInfoCacheKey(key)]
	if !ok || e.isList {
		return "", false
	}
	return e.scalar, true
}

func (c *requestCache) putInfo(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[getInfoCacheKey(key)] = cacheEntry{scalar: value}
}

func (c *requestCache) getConf(key string) (ConfValues, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[getConfCacheKey(key)]
	if !ok || !e.isList {
		return nil, false
	}
	return e.list, true
}

func (c *requestCache) putConf(key string, values ConfValues) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[getConfCacheKey(key)] = cacheEntry{list: values, isList: true}
}

func (c *requestCache) removeConf(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, getConfCacheKey(key))
}

// geoIPUnavailable reports whether the geoip database has been judged
// unavailable: geoIPFailureThreshold consecutive failures with no prior
// success.
func (c *requestCache) geoIPUnavailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geoIPFailures >= geoIPFailureThreshold
}

// recordGeoIPSuccess sets the sticky "never fail again" sentinel.
func (c *requestCache) recordGeoIPSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.geoIPFailures = geoIPNeverFailAgain
}

// recordGeoIPFailure increments the consecutive-failure counter unless
// the sticky success sentinel is already set.
func (c *requestCache) recordGeoIPFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.geoIPFailures == geoIPNeverFailAgain {
		return
	}
	c.geoIPFailures++
}

package control

import (
	"strings"
	"sync"
)

// VersionComparer answers whether a tor version string meets a minimum
// required version. It is delegated to an external collaborator (see
// package torversion) rather than implemented here: the session only
// caches the version string it learns from "GETINFO version".
type VersionComparer interface {
	AtLeast(version, minVersion string) (bool, error)
}

// Session layers request serialization, a read-through cache for stable
// query results, typed configuration get/set semantics, circuit
// manipulation, and address mapping on top of a Transport.
type Session struct {
	t     *Transport
	cache *requestCache

	versionComparer VersionComparer

	featuresMu      sync.RWMutex
	enabledFeatures map[string]bool
	torVersion      string

	eventsMu      sync.Mutex
	eventHandlers map[string][]eventHandlerEntry
	nextEventID   uint64
	activeEvents  map[string]bool
}

// NewSession wraps t with high-level session semantics. vc may be nil, in
// which case EXTENDED_EVENTS/VERBOSE_NAMES are never implicitly enabled
// by version.
func NewSession(t *Transport, vc VersionComparer) *Session {
	s := &Session{
		t:               t,
		cache:           newRequestCache(),
		versionComparer: vc,
		enabledFeatures: make(map[string]bool),
		eventHandlers:   make(map[string][]eventHandlerEntry),
		activeEvents:    make(map[string]bool),
	}
	t.SetNotifySource(s)
	t.SetEventHandler(s.handleEvent)
	return s
}

// Transport returns the underlying transport, for callers (such as
// package auth) that need to issue their own request/response exchanges
// before or around session-level operations.
func (s *Session) Transport() *Transport { return s.t }

// Connect opens the underlying transport and clears the request cache.
func (s *Session) Connect() error {
	s.cache.clear()
	return s.t.Connect()
}

// ClearCache drops every cached GETINFO/GETCONF entry and resets the
// geoip failure counter.
func (s *Session) ClearCache() {
	s.cache.clear()
}

// Close performs a clean shutdown: it issues QUIT best-effort (errors are
// ignored, since the socket is coming down regardless) and then tears
// down the transport.
func (s *Session) Close() error {
	if s.t.IsAlive() {
		_, _ = s.t.Request("QUIT")
	}
	return s.t.Close()
}

// IsAlive reports whether the underlying transport is connected.
func (s *Session) IsAlive() bool { return s.t.IsAlive() }

// AddStatusListener registers fn for connection state transitions; see
// Transport.AddStatusListener.
func (s *Session) AddStatusListener(fn StatusListener, spawn bool) ListenerHandle {
	return s.t.AddStatusListener(fn, spawn)
}

// RemoveStatusListener unregisters a previously added status listener.
func (s *Session) RemoveStatusListener(h ListenerHandle) {
	s.t.RemoveStatusListener(h)
}

func (s *Session) cachedTorVersion() string {
	s.featuresMu.RLock()
	defer s.featuresMu.RUnlock()
	return s.torVersion
}

func (s *Session) setCachedTorVersion(v string) {
	s.featuresMu.Lock()
	defer s.featuresMu.Unlock()
	if v != "" {
		s.torVersion = v
	}
}

// quoteArg double-quotes and backslash-escapes a config/command value for
// the wire.
func quoteArg(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

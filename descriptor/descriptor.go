// Package descriptor routes raw router/microdescriptor blobs fetched
// over the control port to an external parser, without interpreting
// them itself. Descriptor parsing is deliberately out of scope here;
// this package is the hand-off point for a caller-supplied one.
package descriptor

import (
	"strings"

	"github.com/torwire/torctl/control"
)

// Sink receives descriptors as tor returned them, keyed by the full
// GETINFO key they were fetched under.
// Implementations live outside this module.
type Sink interface {
	Accept(key string, blob control.RawDescriptor)
}

// idPrefix, mdIDPrefix and allRecentKey are the descriptor GETINFO keys
// the builders below produce. Fetch itself does not inspect keys: every
// key is passed through unmodified.
const (
	idPrefix     = "desc/id/"
	mdIDPrefix   = "md/id/"
	allRecentKey = "desc/all-recent"
)

// ByFingerprint builds the "desc/id/<fingerprint>" GETINFO key for a
// relay's full descriptor.
func ByFingerprint(fingerprint string) string {
	return idPrefix + fingerprint
}

// MicrodescriptorByFingerprint builds the "md/id/<fingerprint>" GETINFO
// key for a relay's microdescriptor.
func MicrodescriptorByFingerprint(fingerprint string) string {
	return mdIDPrefix + fingerprint
}

// AllRecent is the GETINFO key for every descriptor tor currently holds.
func AllRecent() string {
	return allRecentKey
}

// Fetch retrieves the descriptors named by keys over s and forwards each
// one to sink in the order requested. It does not split or otherwise
// interpret the "desc/all-recent" blob, which tor itself returns as a
// single concatenated document.
func Fetch(s *control.Session, sink Sink, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	blobs, err := s.GetDescriptors(keys)
	if err != nil {
		return err
	}
	for _, k := range keys {
		sink.Accept(k, blobs[k])
	}
	return nil
}

// Fingerprint extracts the relay fingerprint component from a
// "desc/id/<fp>" or "md/id/<fp>" GETINFO key, or "" if key does not
// match either prefix.
func Fingerprint(key string) string {
	switch {
	case strings.HasPrefix(key, idPrefix):
		return key[len(idPrefix):]
	case strings.HasPrefix(key, mdIDPrefix):
		return key[len(mdIDPrefix):]
	default:
		return ""
	}
}

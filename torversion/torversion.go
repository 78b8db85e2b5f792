// Package torversion implements control.VersionComparer using
// hashicorp/go-version, so Session can decide whether a connected tor's
// reported version meets the minimum required for an implicitly-enabled
// feature without the control package itself depending on a version
// parsing library.
package torversion

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// Comparer compares tor version strings via semantic-ish version
// ordering. The zero value is ready to use.
type Comparer struct{}

// AtLeast reports whether ver is greater than or equal to minVersion.
// Tor version strings occasionally carry a trailing tag. A tag separated
// by a space (e.g. "0.4.7.13 (git-...)") is stripped before comparison; a
// hyphenated status suffix (e.g. "0.4.7.13-dev") is kept, and go-version
// orders it as a pre-release of the same version.
func (Comparer) AtLeast(ver, minVersion string) (bool, error) {
	v, err := version.NewVersion(normalize(ver))
	if err != nil {
		return false, err
	}
	min, err := version.NewVersion(normalize(minVersion))
	if err != nil {
		return false, err
	}
	return v.GreaterThanOrEqual(min), nil
}

// normalize strips a leading "Tor=" field marker and surrounding quotes
// if present, then trims everything from the first space onward.
func normalize(s string) string {
	s = strings.TrimPrefix(s, "Tor=")
	s = strings.Trim(s, `"`)
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		s = s[:idx]
	}
	return s
}

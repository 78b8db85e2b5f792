package control

import "strings"

// These minimum versions gate features tor enables implicitly once a minimum
// version is reached, so callers no longer need to request them via
// USEFEATURE. The constants mirror tor's own version history for these
// two features.
const (
	minVersionExtendedEvents = "0.1.2.2"
	minVersionVerboseNames   = "0.1.2.2"
)

// EnableFeature requests one or more controller-protocol features via
// USEFEATURE. Features are additive for the lifetime of the connection;
// tor does not support disabling a feature once enabled.
func (s *Session) EnableFeature(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	reply, err := s.t.Request("USEFEATURE " + strings.Join(names, " "))
	if err != nil {
		return err
	}
	line, err := ParseSingleLine(reply)
	if err != nil {
		return err
	}
	if !line.IsOK() {
		return useFeatureError(line)
	}

	s.featuresMu.Lock()
	for _, n := range names {
		s.enabledFeatures[strings.ToUpper(n)] = true
	}
	s.featuresMu.Unlock()
	return nil
}

func useFeatureError(line *SingleLine) error {
	switch line.Code {
	case "552":
		ia := &InvalidArguments{InvalidRequest: InvalidRequest{Code: line.Code, Message: line.Message}}
		if name, ok := extractUnrecognizedFeature(line.Message); ok {
			ia.Args = []string{name}
		}
		return ia
	case "513", "553":
		return &InvalidRequest{Code: line.Code, Message: line.Message}
	default:
		return NewProtocolError("USEFEATURE failed: %s %s", line.Code, line.Message)
	}
}

// extractUnrecognizedFeature pulls the feature name out of USEFEATURE's
// `Unrecognized feature "<name>"` failure text. If the prefix does not
// match, ok is false and callers fall back to a generic InvalidArguments
// with no extracted name.
func extractUnrecognizedFeature(msg string) (name string, ok bool) {
	const prefix = `Unrecognized feature "`
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return "", false
	}
	rest := msg[idx+len(prefix):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// IsFeatureEnabled reports whether name has been explicitly enabled via
// EnableFeature, or is implicitly enabled because the connected tor's
// cached version is recent enough that the feature is on by default.
func (s *Session) IsFeatureEnabled(name string) bool {
	upper := strings.ToUpper(name)

	s.featuresMu.RLock()
	explicit := s.enabledFeatures[upper]
	version := s.torVersion
	s.featuresMu.RUnlock()

	if explicit {
		return true
	}
	if s.versionComparer == nil || version == "" {
		return false
	}

	var minVersion string
	switch upper {
	case "EXTENDED_EVENTS":
		minVersion = minVersionExtendedEvents
	case "VERBOSE_NAMES":
		minVersion = minVersionVerboseNames
	default:
		return false
	}

	ok, err := s.versionComparer.AtLeast(version, minVersion)
	return err == nil && ok
}

// Signal sends a SIGNAL command; name is one of tor's signal names (e.g.
// "RELOAD", "SHUTDOWN", "NEWNYM", "HALT").
func (s *Session) Signal(name string) error {
	reply, err := s.t.Request("SIGNAL " + name)
	if err != nil {
		return err
	}
	line, err := ParseSingleLine(reply)
	if err != nil {
		return err
	}
	if line.IsOK() {
		return nil
	}
	switch line.Code {
	case "552":
		return &InvalidArguments{InvalidRequest: InvalidRequest{Code: line.Code, Message: line.Message}, Args: []string{name}}
	case "513", "553":
		return &InvalidRequest{Code: line.Code, Message: line.Message}
	default:
		return NewProtocolError("SIGNAL failed: %s %s", line.Code, line.Message)
	}
}

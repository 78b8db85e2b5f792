package control

import "strings"

// GetInfo retrieves a single GETINFO value, consulting the cache first.
func (s *Session) GetInfo(key string) (string, error) {
	values, err := s.GetInfoMap([]string{key})
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// GetInfoDefault behaves like GetInfo but returns def instead of an error
// on failure.
func (s *Session) GetInfoDefault(key, def string) string {
	v, err := s.GetInfo(key)
	if err != nil {
		return def
	}
	return v
}

// GetInfoMap retrieves several GETINFO values in one round trip, using
// the cache for any key that is both cacheable and already cached. It
// fails if tor's reply omits any requested key, or immediately (without
// touching the wire) if a requested ip-to-country/* key is requested
// while the geoip database has been judged unavailable.
func (s *Session) GetInfoMap(keys []string) (map[string]string, error) {
	results := make(map[string]string, len(keys))
	var misses []string

	for _, k := range keys {
		if isIPToCountryKey(k) && s.cache.geoIPUnavailable() {
			return nil, NewProtocolError("geoip unavailable")
		}
		if v, ok := s.cache.getInfo(k); ok {
			results[k] = v
			continue
		}
		misses = append(misses, k)
	}
	if len(misses) == 0 {
		return results, nil
	}

	reply, err := s.t.Request("GETINFO " + strings.Join(misses, " "))
	if err != nil {
		s.recordGeoIPOutcome(misses, false)
		return nil, err
	}
	if !reply.IsOK() {
		last := reply.Last()
		s.recordGeoIPOutcome(misses, false)
		return nil, NewProtocolError("GETINFO failed: %s %s", last.Code, last.Content)
	}

	values, err := ParseGetInfo(reply, misses)
	if err != nil {
		s.recordGeoIPOutcome(misses, false)
		return nil, err
	}

	for _, k := range misses {
		v := values[k]
		results[k] = v
		if isCacheableGetInfoKey(strings.ToLower(k)) {
			s.cache.putInfo(k, v)
		}
		if isIPToCountryKey(k) {
			s.cache.recordGeoIPSuccess()
		}
		if strings.EqualFold(k, "version") {
			s.setCachedTorVersion(v)
		}
	}
	return results, nil
}

// GetInfoMapDefault behaves like GetInfoMap but returns def instead of an
// error on failure.
func (s *Session) GetInfoMapDefault(keys []string, def map[string]string) map[string]string {
	v, err := s.GetInfoMap(keys)
	if err != nil {
		return def
	}
	return v
}

// recordGeoIPOutcome increments the geoip failure counter when the only
// requested key in a failed GETINFO call was an ip-to-country/* lookup.
func (s *Session) recordGeoIPOutcome(requested []string, success bool) {
	if len(requested) != 1 || !isIPToCountryKey(requested[0]) {
		return
	}
	if success {
		s.cache.recordGeoIPSuccess()
	} else {
		s.cache.recordGeoIPFailure()
	}
}

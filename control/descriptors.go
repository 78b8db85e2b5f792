package control

import "strings"

// RawDescriptor is an undecoded router or microdescriptor document as
// tor returned it. Interpreting the bytes is explicitly out of scope for
// this package; see package descriptor for a routing layer that hands
// them to an external parser.
type RawDescriptor []byte

// GetDescriptor retrieves one or more descriptors by GETINFO key (e.g.
// "desc/id/<fingerprint>", "desc/all-recent", "md/id/<fingerprint>").
// Descriptor GETINFO keys are never cached: unlike the scalar keys
// isCacheableGetInfoKey allow-lists, a relay's descriptor can change
// between requests.
func (s *Session) GetDescriptor(key string) (RawDescriptor, error) {
	reply, err := s.t.Request("GETINFO " + key)
	if err != nil {
		return nil, err
	}
	if !reply.IsOK() {
		last := reply.Last()
		return nil, NewProtocolError("GETINFO %s failed: %s %s", key, last.Code, last.Content)
	}

	values, err := ParseGetInfo(reply, []string{key})
	if err != nil {
		return nil, err
	}
	return RawDescriptor(values[key]), nil
}

// GetDescriptors retrieves several descriptor GETINFO keys in a single
// round trip, mirroring GetInfoMap's batching but skipping the cache.
func (s *Session) GetDescriptors(keys []string) (map[string]RawDescriptor, error) {
	reply, err := s.t.Request("GETINFO " + strings.Join(keys, " "))
	if err != nil {
		return nil, err
	}
	if !reply.IsOK() {
		last := reply.Last()
		return nil, NewProtocolError("GETINFO failed: %s %s", last.Code, last.Content)
	}

	values, err := ParseGetInfo(reply, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]RawDescriptor, len(keys))
	for _, k := range keys {
		out[k] = RawDescriptor(values[k])
	}
	return out, nil
}

package control

import "strings"

// GetConf retrieves a single configuration option's values.
func (s *Session) GetConf(key string) (ConfValues, error) {
	m, err := s.GetConfMap([]string{key})
	if err != nil {
		return nil, err
	}
	return m[key], nil
}

// GetConfLast retrieves a single configuration option and projects its
// value list to the last element (the "multiple=false" variant), or nil
// if the option is unset.
func (s *Session) GetConfLast(key string) (*string, error) {
	vals, err := s.GetConf(key)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals[len(vals)-1], nil
}

// GetConfMap retrieves several configuration options at once. Whitespace-
// only keys are dropped. Aliased keys (e.g. HiddenServicePort) are
// rewritten to their canonical group key on the wire, and the returned
// map carries every key tor's reply named under tor's own casing; keys
// the caller did not request under an alias are returned under the
// caller's original casing.
func (s *Session) GetConfMap(keys []string) (map[string]ConfValues, error) {
	result := make(map[string]ConfValues)

	type miss struct {
		userKey string
		wireKey string
		aliased bool
	}
	var misses []miss
	seenWire := make(map[string]bool)

	for _, raw := range keys {
		k := strings.TrimSpace(raw)
		if k == "" {
			continue
		}
		canonical, aliased := resolveAlias(k)
		wireKey := k
		if aliased {
			wireKey = canonical
		}

		if cached, ok := s.cache.getConf(wireKey); ok {
			if aliased {
				result[wireKey] = cached
			} else {
				result[k] = cached
			}
			continue
		}

		lower := strings.ToLower(wireKey)
		if seenWire[lower] {
			continue
		}
		seenWire[lower] = true
		misses = append(misses, miss{userKey: k, wireKey: wireKey, aliased: aliased})
	}

	if len(misses) == 0 {
		return result, nil
	}

	wireArgs := make([]string, len(misses))
	for i, m := range misses {
		wireArgs[i] = m.wireKey
	}

	reply, err := s.t.Request("GETCONF " + strings.Join(wireArgs, " "))
	if err != nil {
		return nil, err
	}
	parsed, err := ParseGetConf(reply)
	if err != nil {
		return nil, err
	}
	for torKey, vals := range parsed {
		s.cache.putConf(torKey, vals)
	}

	for _, m := range misses {
		if m.aliased {
			for torKey, vals := range parsed {
				result[torKey] = vals
			}
			continue
		}
		for torKey, vals := range parsed {
			if strings.EqualFold(torKey, m.wireKey) {
				result[m.userKey] = vals
			}
		}
	}
	return result, nil
}

// ConfigArg describes one SETCONF/RESETCONF parameter. Exactly one of
// Scalar or List should be set to assign a value; leaving both unset
// resets the option to its default (a bare parameter on the wire).
type ConfigArg struct {
	Param  string
	Scalar *string
	List   []string
}

// ConfigSet builds a scalar-valued ConfigArg.
func ConfigSet(param, value string) ConfigArg {
	v := value
	return ConfigArg{Param: param, Scalar: &v}
}

// ConfigSetList builds a list-valued ConfigArg.
func ConfigSetList(param string, values []string) ConfigArg {
	return ConfigArg{Param: param, List: values}
}

// ConfigReset builds a ConfigArg that resets param to its default.
func ConfigReset(param string) ConfigArg {
	return ConfigArg{Param: param}
}

// SetConf issues SETCONF for an ordered sequence of parameters. Order is
// preserved on the wire because hidden-service option blocks are
// position-sensitive.
func (s *Session) SetConf(args ...ConfigArg) error {
	return s.setOrReset("SETCONF", args)
}

// ResetConf issues RESETCONF for an ordered sequence of parameters.
func (s *Session) ResetConf(args ...ConfigArg) error {
	return s.setOrReset("RESETCONF", args)
}

func (s *Session) setOrReset(cmd string, args []ConfigArg) error {
	var b strings.Builder
	b.WriteString(cmd)
	for _, a := range args {
		switch {
		case a.Scalar != nil:
			b.WriteByte(' ')
			b.WriteString(a.Param)
			b.WriteByte('=')
			b.WriteString(quoteArg(*a.Scalar))
		case len(a.List) > 0:
			for _, v := range a.List {
				b.WriteByte(' ')
				b.WriteString(a.Param)
				b.WriteByte('=')
				b.WriteString(quoteArg(v))
			}
		default:
			b.WriteByte(' ')
			b.WriteString(a.Param)
		}
	}

	reply, err := s.t.Request(b.String())
	if err != nil {
		return err
	}
	if !reply.IsOK() {
		return setConfError(reply)
	}

	for _, a := range args {
		switch {
		case a.Scalar != nil:
			v := *a.Scalar
			s.cache.putConf(a.Param, ConfValues{&v})
		case len(a.List) > 0:
			vals := make(ConfValues, len(a.List))
			for i := range a.List {
				v := a.List[i]
				vals[i] = &v
			}
			s.cache.putConf(a.Param, vals)
		default:
			s.cache.removeConf(a.Param)
		}
	}
	return nil
}

func setConfError(reply *Reply) error {
	last := reply.Last()
	if last.Code == "552" {
		const prefix = "Unrecognized option: Unknown option '"
		if idx := strings.Index(last.Content, prefix); idx >= 0 {
			rest := last.Content[idx+len(prefix):]
			if end := strings.IndexByte(rest, '\''); end >= 0 {
				return &InvalidArguments{InvalidRequest: InvalidRequest{Code: last.Code, Message: last.Content}, Args: []string{rest[:end]}}
			}
		}
		return &InvalidRequest{Code: last.Code, Message: last.Content}
	}
	switch last.Code {
	case "513", "553":
		return &InvalidRequest{Code: last.Code, Message: last.Content}
	default:
		return NewProtocolError("config command failed: %s %s", last.Code, last.Content)
	}
}

// LoadConf sends torrc as a multi-line LOADCONF command.
func (s *Session) LoadConf(torrc string) error {
	reply, err := s.t.Request("LOADCONF\n" + torrc)
	if err != nil {
		return err
	}
	if reply.IsOK() {
		return nil
	}
	return confFileError(reply, false)
}

// SaveConf persists tor's current configuration to its torrc. When force
// is true, it overwrites a torrc tor considers unsafe to replace
// (SAVECONF FORCE).
func (s *Session) SaveConf(force bool) error {
	cmd := "SAVECONF"
	if force {
		cmd += " FORCE"
	}
	reply, err := s.t.Request(cmd)
	if err != nil {
		return err
	}
	if reply.IsOK() {
		return nil
	}
	return confFileError(reply, true)
}

func confFileError(reply *Reply, isSave bool) error {
	last := reply.Last()
	switch last.Code {
	case "551":
		if isSave {
			return &OperationFailed{Code: last.Code, Message: last.Content}
		}
		return NewProtocolError("unexpected 551 reply: %s", last.Content)
	case "552":
		if name, ok := extractLoadConfUnknownOption(last.Content); ok {
			return &InvalidArguments{InvalidRequest: InvalidRequest{Code: last.Code, Message: last.Content}, Args: []string{name}}
		}
		return &InvalidRequest{Code: last.Code, Message: last.Content}
	case "553":
		return &InvalidRequest{Code: last.Code, Message: last.Content}
	default:
		return NewProtocolError("config file command failed: %s %s", last.Code, last.Content)
	}
}

// extractLoadConfUnknownOption pulls the option name out of LOADCONF's
// "Invalid config file: Failed to parse/validate config: Unknown option
// '<name>'" failure text. If the prefix does not match, ok is false and
// callers should fall back to a generic InvalidRequest.
func extractLoadConfUnknownOption(msg string) (name string, ok bool) {
	const prefix = "Invalid config file: Failed to parse/validate config: Unknown option "
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimPrefix(msg[idx:], prefix)
	rest = strings.Trim(rest, "'\".")
	end := strings.IndexAny(rest, " '\".")
	if end < 0 {
		return rest, rest != ""
	}
	return rest[:end], rest[:end] != ""
}

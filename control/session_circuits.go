package control

import (
	"strconv"
	"strings"
)

// ExtendCircuit extends an existing circuit (circuitID != 0) or requests a
// brand new one (circuitID == 0) along path, an ordered list of relay
// fingerprints or nicknames. An empty purpose defaults to "general". It
// returns the (possibly newly assigned) circuit ID.
func (s *Session) ExtendCircuit(circuitID int, path []string, purpose string) (int, error) {
	if purpose == "" {
		purpose = "general"
	}
	var b strings.Builder
	b.WriteString("EXTENDCIRCUIT ")
	b.WriteString(strconv.Itoa(circuitID))
	if len(path) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(path, ","))
	}
	b.WriteString(" purpose=")
	b.WriteString(purpose)

	reply, err := s.t.Request(b.String())
	if err != nil {
		return 0, err
	}
	line, err := ParseSingleLine(reply)
	if err != nil {
		return 0, err
	}
	if !line.IsOK() {
		return 0, circuitError(line)
	}

	_, rest := NextToken(line.Message) // drop "EXTENDED"
	idTok, _ := NextToken(rest)
	id, err := strconv.Atoi(idTok)
	if err != nil {
		return 0, WrapProtocolError(err, "EXTENDCIRCUIT reply has non-numeric circuit id %q", idTok)
	}
	return id, nil
}

// NewCircuit requests a brand new circuit along path with the given
// purpose; it is ExtendCircuit with circuitID 0.
func (s *Session) NewCircuit(path []string, purpose string) (int, error) {
	return s.ExtendCircuit(0, path, purpose)
}

// RepurposeCircuit changes an existing circuit's purpose.
func (s *Session) RepurposeCircuit(circuitID int, purpose string) error {
	reply, err := s.t.Request("SETCIRCUITPURPOSE " + strconv.Itoa(circuitID) + " purpose=" + purpose)
	if err != nil {
		return err
	}
	line, err := ParseSingleLine(reply)
	if err != nil {
		return err
	}
	if !line.IsOK() {
		return circuitError(line)
	}
	return nil
}

// CloseCircuit tears down circuitID. ifUnused requests that tor defer the
// close until no stream is attached to the circuit.
func (s *Session) CloseCircuit(circuitID int, ifUnused bool) error {
	cmd := "CLOSECIRCUIT " + strconv.Itoa(circuitID)
	if ifUnused {
		cmd += " IfUnused"
	}
	reply, err := s.t.Request(cmd)
	if err != nil {
		return err
	}
	line, err := ParseSingleLine(reply)
	if err != nil {
		return err
	}
	if !line.IsOK() {
		return circuitError(line)
	}
	return nil
}

func circuitError(line *SingleLine) error {
	switch line.Code {
	case "552":
		// Unlike SETCONF/LOADCONF/USEFEATURE, tor's 552 text for circuit
		// commands names no specific argument, so there is nothing to
		// extract into an InvalidArguments.
		return &InvalidRequest{Code: line.Code, Message: line.Message}
	case "551":
		return &OperationFailed{Code: line.Code, Message: line.Message}
	case "513", "553":
		return &InvalidRequest{Code: line.Code, Message: line.Message}
	default:
		return NewProtocolError("circuit command failed: %s %s", line.Code, line.Message)
	}
}

// MapAddress requests one or more address remappings. Each KV's Key is the
// address being mapped from and Value is the address it should resolve
// to; a Key of "0.0.0.0", "::0", or "." asks tor to choose an unused
// mapped address automatically. The returned OrderedMap reflects tor's
// actual (possibly auto-chosen) mappings in reply order.
func (s *Session) MapAddress(pairs ...KV) (*OrderedMap, error) {
	if len(pairs) == 0 {
		return &OrderedMap{}, nil
	}
	var b strings.Builder
	b.WriteString("MAPADDRESS")
	for _, p := range pairs {
		b.WriteByte(' ')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}

	reply, err := s.t.Request(b.String())
	if err != nil {
		return nil, err
	}
	return ParseMapAddress(reply)
}

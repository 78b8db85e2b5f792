// Package auth negotiates Tor control-port authentication on top of a
// control.Transport, exactly the way the core library's own collaborators
// do: by issuing its own PROTOCOLINFO/AUTHCHALLENGE/AUTHENTICATE commands
// through Transport.Request rather than through any privileged path.
package auth

import (
	"strconv"
	"strings"

	"github.com/torwire/torctl/control"
)

// protocolInfoVersion is the only PROTOCOLINFO version this package
// understands, matching the one value tor has ever defined.
const protocolInfoVersion = 1

// ProtocolInfo is the decoded reply to PROTOCOLINFO: the authentication
// methods tor accepts, the cookie file path (if cookie authentication is
// enabled), and tor's own version string.
type ProtocolInfo struct {
	Methods    []string
	CookieFile string
	TorVersion string
}

// Supports reports whether method (case-insensitive) is one tor offered.
func (p *ProtocolInfo) Supports(method string) bool {
	for _, m := range p.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func queryProtocolInfo(t *control.Transport) (*ProtocolInfo, error) {
	reply, err := t.Request("PROTOCOLINFO " + strconv.Itoa(protocolInfoVersion))
	if err != nil {
		return nil, err
	}
	if !reply.IsOK() {
		last := reply.Last()
		return nil, &control.InvalidRequest{Code: last.Code, Message: last.Content}
	}

	info := &ProtocolInfo{}
	for _, line := range reply.Lines {
		content := line.Content
		keyword, rest := control.NextToken(content)
		switch keyword {
		case "AUTH":
			for rest != "" {
				var key, value string
				var ok bool
				key, value, rest, ok = control.NextMapping(rest)
				if !ok {
					break
				}
				switch key {
				case "METHODS":
					info.Methods = strings.Split(value, ",")
				case "COOKIEFILE":
					info.CookieFile = value
				}
			}
		case "VERSION":
			for rest != "" {
				var key, value string
				var ok bool
				key, value, rest, ok = control.NextMapping(rest)
				if !ok {
					break
				}
				if key == "Tor" {
					info.TorVersion = value
				}
			}
		}
	}
	return info, nil
}

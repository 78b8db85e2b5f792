package auth

import (
	"fmt"

	"github.com/torwire/torctl/control"
)

// Method selects which Tor control-port authentication scheme Negotiate
// uses. MethodAuto reproduces the core library's own preference order:
// HASHEDPASSWORD when a password was supplied, else SAFECOOKIE if tor
// offers it, else NULL.
type Method int

const (
	MethodAuto Method = iota
	MethodNull
	MethodHashedPassword
	MethodSafeCookie
)

// Options configures Negotiate. Build one with Null, HashedPassword, or
// SafeCookie rather than constructing it directly.
type Options struct {
	Method Method

	// Password is required for MethodHashedPassword.
	Password string

	// CookiePath overrides the cookie file PROTOCOLINFO reports; leave
	// empty to use tor's own COOKIEFILE value for MethodSafeCookie.
	CookiePath string
}

// Null selects the NULL authentication method: no credentials, valid
// only when tor's control port has no authentication configured.
func Null() Options {
	return Options{Method: MethodNull}
}

// HashedPassword selects the HASHEDPASSWORD method, authenticating with
// the cleartext password tor will hash and compare against its
// HashedControlPassword configuration.
func HashedPassword(password string) Options {
	return Options{Method: MethodHashedPassword, Password: password}
}

// SafeCookie selects the SAFECOOKIE method. cookiePath overrides the
// COOKIEFILE path PROTOCOLINFO reports; pass "" to use tor's own value.
func SafeCookie(cookiePath string) Options {
	return Options{Method: MethodSafeCookie, CookiePath: cookiePath}
}

// Negotiate authenticates t against a running tor control port. It
// queries PROTOCOLINFO first, both to discover which methods tor accepts
// and (for MethodAuto) to decide among them, then runs the handshake the
// chosen method requires.
func Negotiate(t *control.Transport, opts Options) error {
	info, err := queryProtocolInfo(t)
	if err != nil {
		return err
	}

	method := opts.Method
	if method == MethodAuto {
		method = pickMethod(info, opts)
	}

	switch method {
	case MethodNull:
		return authenticateNull(t)
	case MethodHashedPassword:
		if !info.Supports("HASHEDPASSWORD") {
			return fmt.Errorf("auth: tor does not support HASHEDPASSWORD authentication")
		}
		return authenticateHashedPassword(t, opts.Password)
	case MethodSafeCookie:
		if !info.Supports("SAFECOOKIE") {
			return fmt.Errorf("auth: tor does not support SAFECOOKIE authentication")
		}
		cookiePath := opts.CookiePath
		if cookiePath == "" {
			cookiePath = info.CookieFile
		}
		return authenticateSafeCookie(t, cookiePath)
	default:
		return fmt.Errorf("auth: unknown authentication method %d", method)
	}
}

func pickMethod(info *ProtocolInfo, opts Options) Method {
	switch {
	case opts.Password != "":
		return MethodHashedPassword
	case info.Supports("SAFECOOKIE"):
		return MethodSafeCookie
	case info.Supports("NULL"):
		return MethodNull
	default:
		return MethodNull
	}
}

func authenticateNull(t *control.Transport) error {
	reply, err := t.Request("AUTHENTICATE")
	if err != nil {
		return err
	}
	return authenticateError(reply)
}

func authenticateHashedPassword(t *control.Transport, password string) error {
	reply, err := t.Request(fmt.Sprintf("AUTHENTICATE %q", password))
	if err != nil {
		return err
	}
	return authenticateError(reply)
}

func authenticateError(reply *control.Reply) error {
	line, err := control.ParseSingleLine(reply)
	if err != nil {
		return err
	}
	if line.IsOK() {
		return nil
	}
	switch line.Code {
	case "515":
		return fmt.Errorf("auth: authentication failed: %s", line.Message)
	default:
		return control.NewProtocolError("AUTHENTICATE failed: %s %s", line.Code, line.Message)
	}
}

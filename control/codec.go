package control

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
)

// EncodeCommand turns a command string into its wire form. CRLF sequences
// in message are first normalized to LF; if the normalized message then
// contains an embedded LF, it is sent using the multi-line "+" form with a
// terminating ".\r\n"; otherwise it is sent as a single CRLF-terminated
// line. Dot-stuffing applies only to incoming data blocks, never on send.
// When raw is true, message is written byte for byte with no normalization
// or framing applied.
func EncodeCommand(message string, raw bool) []byte {
	if raw {
		return []byte(message)
	}

	normalized := strings.ReplaceAll(message, "\r\n", "\n")
	if !strings.Contains(normalized, "\n") {
		return []byte(normalized + "\r\n")
	}

	var b strings.Builder
	b.WriteByte('+')
	for _, line := range strings.Split(normalized, "\n") {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString(".\r\n")
	return []byte(b.String())
}

// DecodeReply reads one complete reply (or event) from r. It returns
// *ProtocolError for malformed framing and *SocketClosed/*SocketError for
// transport-level failures.
func DecodeReply(r *bufio.Reader) (*Reply, error) {
	var lines []ReplyLine

	for {
		raw, err := readCRLFLine(r)
		if err != nil {
			return nil, classifyReadErr(err)
		}

		if len(raw) < 4 {
			return nil, NewProtocolError("short line: %q", raw)
		}
		code := raw[0:3]
		if !isAlphaNumeric(code) {
			return nil, NewProtocolError("non-alphanumeric status code: %q", raw)
		}
		content := raw[4:]

		switch raw[3] {
		case byte(DividerEnd):
			lines = append(lines, ReplyLine{Code: code, Divider: DividerEnd, Content: content})
			return &Reply{Lines: lines}, nil

		case byte(DividerMid):
			lines = append(lines, ReplyLine{Code: code, Divider: DividerMid, Content: content})

		case byte(DividerData):
			block, err := readDataBlock(r)
			if err != nil {
				return nil, err
			}
			full := content
			if block != "" {
				full = content + "\n" + block
			}
			lines = append(lines, ReplyLine{Code: code, Divider: DividerData, Content: full})

		default:
			return nil, NewProtocolError("invalid divider byte %q in line %q", raw[3], raw)
		}
	}
}

// readDataBlock reads data-block lines until a line whose payload equals a
// single ".", undoing dot-stuffing on each line and joining them with "\n".
func readDataBlock(r *bufio.Reader) (string, error) {
	var parts []string
	for {
		raw, err := readCRLFLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) || isClosedConnErr(err) {
				return "", NewSocketClosed("connection closed inside data block", err)
			}
			return "", classifyReadErr(err)
		}
		if raw == "." {
			return strings.Join(parts, "\n"), nil
		}
		if strings.HasPrefix(raw, "..") {
			raw = raw[1:]
		}
		parts = append(parts, raw)
	}
}

// readCRLFLine reads one line terminated by CRLF and returns its content
// without the terminator. A complete line that ends in a bare LF is a
// ProtocolError. A read error (including the stream ending mid-line) is
// returned unchanged for the caller to classify as SocketClosed or
// SocketError.
func readCRLFLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if line == "" {
			return "", err
		}
		// Partial line followed by a transport failure: still surface
		// the transport failure, not a framing error, since the peer
		// simply vanished mid-line.
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", NewProtocolError("line missing CRLF terminator: %q", line)
	}
	return line[:len(line)-2], nil
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return NewSocketClosed("end of stream", err)
	}
	if isClosedConnErr(err) {
		return NewSocketClosed("connection closed", err)
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return err
	}
	return NewSocketError("read failed", err)
}

// isClosedConnErr reports whether err indicates the peer is no longer
// connected: a broken pipe, a reset connection, or use of an already
// closed net.Conn.
func isClosedConnErr(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "transport endpoint is not connected")
}

func isAlphaNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

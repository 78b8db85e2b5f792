package control

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCommandSingleLine(t *testing.T) {
	got := EncodeCommand("GETINFO version", false)
	require.Equal(t, "GETINFO version\r\n", string(got))
}

func TestEncodeCommandMultiLine(t *testing.T) {
	got := EncodeCommand("LOADCONF\nSocksPort 9050\n.weird line\n", false)
	// Lines go out verbatim: dot-stuffing is an incoming-only transform.
	want := "+LOADCONF\r\nSocksPort 9050\r\n.weird line\r\n\r\n.\r\n"
	require.Equal(t, want, string(got))
}

func TestEncodeCommandRaw(t *testing.T) {
	got := EncodeCommand("RAW\r\n", true)
	require.Equal(t, "RAW\r\n", string(got))
}

func TestDecodeReplySingleLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("250 OK\r\n"))
	reply, err := DecodeReply(r)
	require.NoError(t, err)
	require.True(t, reply.IsOK())
	require.Equal(t, "OK", reply.Last().Content)
}

func TestDecodeReplyMidLines(t *testing.T) {
	raw := "250-version=0.4.7.13\r\n250-config-file=/etc/tor/torrc\r\n250 OK\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	reply, err := DecodeReply(r)
	require.NoError(t, err)
	require.Len(t, reply.Lines, 3)
	require.Equal(t, DividerMid, reply.Lines[0].Divider)
	require.Equal(t, DividerEnd, reply.Lines[2].Divider)
}

func TestDecodeReplyDataBlock(t *testing.T) {
	body := "250+desc/all-recent=\r\nfoo\r\n..bar\r\n.\r\n250 OK\r\n"
	r := bufio.NewReader(strings.NewReader(body))
	reply, err := DecodeReply(r)
	require.NoError(t, err)
	require.Len(t, reply.Lines, 2)
	require.Equal(t, DividerData, reply.Lines[0].Divider)
	// The "..bar" wire line loses one dot to dot-stuffing.
	require.Equal(t, "desc/all-recent=\nfoo\n.bar", reply.Lines[0].Content)
}

func TestDecodeReplyShortLineError(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("25\r\n"))
	_, err := DecodeReply(r)
	require.Error(t, err)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestDecodeReplyMissingCRLF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("250 OK\n"))
	_, err := DecodeReply(r)
	require.Error(t, err)
}

func TestDecodeReplyEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := DecodeReply(r)
	require.Error(t, err)
	var sc *SocketClosed
	require.ErrorAs(t, err, &sc)
}

func TestDecodeReplyEventCode(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("650 CIRC 1 LAUNCHED\r\n"))
	reply, err := DecodeReply(r)
	require.NoError(t, err)
	require.True(t, reply.IsEvent())
}

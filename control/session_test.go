package control

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedDaemon replies to each received command line by looking it up
// verbatim in responses; an unmatched command gets a generic 510 error.
// Every received command (trimmed of its CRLF) is also pushed to
// received, so tests can assert how many wire round trips actually
// happened.
func scriptedDaemon(responses map[string]string, received chan<- string) func(conn net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.TrimRight(line, "\r\n")
			if received != nil {
				received <- cmd
			}
			resp, ok := responses[cmd]
			if !ok {
				resp = "510 Unrecognized command\r\n"
			}
			if _, err := conn.Write([]byte(resp)); err != nil {
				return
			}
		}
	}
}

func newConnectedSession(t *testing.T, responses map[string]string) (*Session, chan string) {
	t.Helper()
	daemon, addr := newFakeDaemon(t)
	t.Cleanup(daemon.close)

	received := make(chan string, 16)
	daemon.acceptOnce(t, scriptedDaemon(responses, received))

	tr := NewTransport(DialConfig{Network: "tcp", Address: addr, DialTimeout: time.Second})
	s := NewSession(tr, nil)
	require.NoError(t, s.Connect())
	t.Cleanup(func() { s.Close() })
	return s, received
}

func TestSessionGetInfoCachesCacheableKey(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"GETINFO version": "250 version=0.4.7.13\r\n",
	})

	v, err := s.GetInfo("version")
	require.NoError(t, err)
	require.Equal(t, "0.4.7.13", v)
	require.Equal(t, "GETINFO version", <-received)

	v, err = s.GetInfo("version")
	require.NoError(t, err)
	require.Equal(t, "0.4.7.13", v)

	select {
	case cmd := <-received:
		t.Fatalf("expected cached GetInfo to skip the wire, got command %q", cmd)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionGetInfoNonCacheableKeyHitsWireEachTime(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"GETINFO circuit-status": "250 circuit-status=\r\n",
	})

	_, err := s.GetInfo("circuit-status")
	require.NoError(t, err)
	require.Equal(t, "GETINFO circuit-status", <-received)

	_, err = s.GetInfo("circuit-status")
	require.NoError(t, err)
	require.Equal(t, "GETINFO circuit-status", <-received)
}

func TestSessionGetConfMapAlias(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"GETCONF HiddenServiceOptions": "250-HiddenServiceDir=/var/lib/tor/hs\r\n250 HiddenServicePort=80\r\n",
	})

	values, err := s.GetConfMap([]string{"HiddenServicePort"})
	require.NoError(t, err)
	require.Equal(t, "GETCONF HiddenServiceOptions", <-received)
	require.Contains(t, values, "HiddenServiceDir")
	require.Contains(t, values, "HiddenServicePort")
}

func TestSessionSetConfUpdatesCache(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		`SETCONF SocksPort="9150"`: "250 OK\r\n",
	})

	err := s.SetConf(ConfigSet("SocksPort", "9150"))
	require.NoError(t, err)
	require.Equal(t, `SETCONF SocksPort="9150"`, <-received)

	cached, ok := s.cache.getConf("SocksPort")
	require.True(t, ok)
	require.Equal(t, "9150", *cached[0])
}

func TestSessionSetConfUnrecognizedOption(t *testing.T) {
	s, _ := newConnectedSession(t, map[string]string{
		`SETCONF NotReal="1"`: `552 Unrecognized option: Unknown option 'NotReal'` + "\r\n",
	})

	err := s.SetConf(ConfigSet("NotReal", "1"))
	require.Error(t, err)
	var ia *InvalidArguments
	require.ErrorAs(t, err, &ia)
	require.Equal(t, []string{"NotReal"}, ia.Args)
}

func TestSessionSignal(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"SIGNAL NEWNYM": "250 OK\r\n",
	})
	require.NoError(t, s.Signal("NEWNYM"))
	require.Equal(t, "SIGNAL NEWNYM", <-received)
}

func TestSessionExtendCircuit(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"EXTENDCIRCUIT 0 relay1,relay2 purpose=general": "250 EXTENDED 56\r\n",
	})
	id, err := s.NewCircuit([]string{"relay1", "relay2"}, "")
	require.NoError(t, err)
	require.Equal(t, 56, id)
	require.Equal(t, "EXTENDCIRCUIT 0 relay1,relay2 purpose=general", <-received)
}

func TestSessionExtendCircuitUnknownRouter(t *testing.T) {
	s, _ := newConnectedSession(t, map[string]string{
		"EXTENDCIRCUIT 0 nosuchrelay purpose=general": "552 No such router \"nosuchrelay\"\r\n",
	})

	_, err := s.NewCircuit([]string{"nosuchrelay"}, "")
	require.Error(t, err)
	var ir *InvalidRequest
	require.ErrorAs(t, err, &ir)
	require.Equal(t, "552", ir.Code)
}

func TestSessionEventHandlerDispatch(t *testing.T) {
	daemon, addr := newFakeDaemon(t)
	t.Cleanup(daemon.close)

	daemon.acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimRight(line, "\r\n") != "SETEVENTS CIRC" {
			return
		}
		conn.Write([]byte("650 CIRC 1 LAUNCHED\r\n"))
		conn.Write([]byte("250 OK\r\n"))
	})

	tr := NewTransport(DialConfig{Network: "tcp", Address: addr, DialTimeout: time.Second})
	s := NewSession(tr, nil)
	require.NoError(t, s.Connect())
	t.Cleanup(func() { s.Close() })

	got := make(chan Event, 1)
	cancel := s.AddEventHandler("CIRC", func(e Event) { got <- e })
	defer cancel()

	require.NoError(t, s.SetEvents("CIRC"))

	select {
	case e := <-got:
		require.Equal(t, "CIRC", e.Type)
		require.Contains(t, e.Content(), "1 LAUNCHED")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched event")
	}
}

func TestSessionEventHandlerWildcard(t *testing.T) {
	daemon, addr := newFakeDaemon(t)
	t.Cleanup(daemon.close)

	daemon.acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimRight(line, "\r\n") != "SETEVENTS BW CIRC" {
			return
		}
		conn.Write([]byte("250 OK\r\n"))
		conn.Write([]byte("650 BW 10 20\r\n"))
		conn.Write([]byte("650 CIRC 1 LAUNCHED\r\n"))
	})

	tr := NewTransport(DialConfig{Network: "tcp", Address: addr, DialTimeout: time.Second})
	s := NewSession(tr, nil)
	require.NoError(t, s.Connect())
	t.Cleanup(func() { s.Close() })

	got := make(chan Event, 2)
	cancel := s.AddEventHandler("*", func(e Event) { got <- e })
	defer cancel()

	require.NoError(t, s.SetEvents("BW", "CIRC"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			seen[e.Type] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for wildcard-dispatched events, got %v so far", seen)
		}
	}
	require.True(t, seen["BW"])
	require.True(t, seen["CIRC"])
}

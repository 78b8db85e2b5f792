// Package control implements the Tor control protocol: the line-oriented
// request/response wire format (with asynchronous 650-coded event
// notifications) that a controller uses to drive a running tor process
// over a TCP port or local domain socket.
package control

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is a connection's lifecycle state.
type State int

const (
	StateInit State = iota
	StateReset
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReset:
		return "RESET"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// StatusListener is notified of connection state transitions. source is
// whatever value was configured on the Transport via SetNotifySource
// (typically the owning Session, so one handler can be shared across
// several connections and still tell them apart).
type StatusListener func(source interface{}, state State, unixTimestamp int64)

// ListenerHandle identifies a previously registered StatusListener so it
// can be removed again; function values are not comparable in Go, so
// AddStatusListener hands back a token in place of the function itself.
type ListenerHandle uint64

type listenerEntry struct {
	handle ListenerHandle
	fn     StatusListener
	spawn  bool
}

// DialConfig configures how a Transport reaches the control port.
type DialConfig struct {
	// Network is "tcp" for a TCP control port or "unix" for a local
	// domain socket.
	Network string
	// Address is "127.0.0.1:9051" for TCP or a socket path such as
	// "/var/run/tor/control" for unix.
	Address string
	// DialTimeout bounds the initial connect; zero means no timeout.
	DialTimeout time.Duration
}

// DefaultTCPConfig is the conventional local control-port address.
func DefaultTCPConfig() DialConfig {
	return DialConfig{Network: "tcp", Address: "127.0.0.1:9051"}
}

// DefaultUnixConfig is the conventional local control-socket path.
func DefaultUnixConfig() DialConfig {
	return DialConfig{Network: "unix", Address: "/var/run/tor/control"}
}

type replyOrErr struct {
	reply *Reply
	err   error
}

// waitQueue is a small FIFO guarded by a mutex/condition-variable pair.
// It backs both the single reply slot and the event queue; "single" in
// the reply slot's case describes steady-state occupancy, not a hard
// capacity limit -- stale-reply hygiene can leave more than one item
// queued across a connection churn.
type waitQueue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

func newWaitQueue[T any]() *waitQueue[T] {
	q := &waitQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *waitQueue[T]) push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until an item is available.
func (q *waitQueue[T]) pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// popUnlessDone blocks until an item is available or aliveFn reports
// false, in which case it returns the zero value and false.
func (q *waitQueue[T]) popUnlessDone(aliveFn func() bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if !aliveFn() {
			var zero T
			return zero, false
		}
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// drain removes and returns every item currently queued without blocking.
func (q *waitQueue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *waitQueue[T]) wakeAll() {
	q.cond.Broadcast()
}

// Transport owns the control-port socket: the reader goroutine, the event
// dispatcher goroutine, the single in-flight-reply slot, the event queue,
// and the status-listener registry. It presents a synchronous
// send-then-receive call (Request) and an overridable event callback.
type Transport struct {
	cfg DialConfig

	sendMu sync.Mutex // guards send/connect/close and alive transitions
	conn   net.Conn
	r      *bufio.Reader
	alive  atomic.Bool

	requestMu sync.Mutex // serializes Request() end to end

	slot   *waitQueue[replyOrErr]
	eventQ *waitQueue[*Reply]

	listenersMu sync.Mutex
	listeners   []listenerEntry
	nextHandle  uint64
	notifySrc   interface{}

	onEventMu sync.Mutex
	onEvent   func(*Reply)
}

// NewTransport builds a Transport for the given dial configuration. It is
// not yet connected; call Connect before Send/Request.
func NewTransport(cfg DialConfig) *Transport {
	t := &Transport{
		cfg:    cfg,
		slot:   newWaitQueue[replyOrErr](),
		eventQ: newWaitQueue[*Reply](),
	}
	t.notifySrc = t
	return t
}

// SetNotifySource sets the value passed as the first argument to status
// listeners. Sessions call this with themselves so a shared listener can
// tell multiple sessions apart.
func (t *Transport) SetNotifySource(source interface{}) {
	t.notifySrc = source
}

// SetEventHandler installs the callback invoked for every 650-coded
// reply. It must be set before Connect to avoid racing the reader
// goroutine; calling it again after Connect is safe but may race a reply
// that is already in flight to the previous handler.
func (t *Transport) SetEventHandler(fn func(*Reply)) {
	t.onEventMu.Lock()
	t.onEvent = fn
	t.onEventMu.Unlock()
}

func (t *Transport) dispatchEvent(reply *Reply) {
	t.onEventMu.Lock()
	fn := t.onEvent
	t.onEventMu.Unlock()
	if fn != nil {
		fn(reply)
	}
}

// Connect dials the control port and starts the reader and event
// dispatcher goroutines. Calling Connect while already alive is a no-op.
func (t *Transport) Connect() error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if t.alive.Load() {
		return nil
	}

	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.Dial(t.cfg.Network, t.cfg.Address)
	if err != nil {
		return NewSocketError("dial failed", err)
	}

	t.conn = conn
	t.r = bufio.NewReader(conn)
	t.slot.drain()
	t.eventQ.drain()
	t.alive.Store(true)

	go t.readLoop()
	go t.eventLoop()

	t.notifyListeners(StateInit, nil)
	return nil
}

// IsAlive reports whether the transport currently has a live connection.
func (t *Transport) IsAlive() bool {
	return t.alive.Load()
}

// Close tears down the connection. It is idempotent and safe to call
// concurrently with Send/Request/Connect, and safe to call reentrantly
// from within the reader goroutine's own error path.
func (t *Transport) Close() error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	return t.closeLocked()
}

// closeLocked assumes the caller already holds sendMu.
func (t *Transport) closeLocked() error {
	if !t.alive.CompareAndSwap(true, false) {
		return nil
	}
	var cerr error
	if t.conn != nil {
		cerr = t.conn.Close()
	}
	t.eventQ.wakeAll()
	t.notifyListeners(StateClosed, nil)
	return cerr
}

// tryAutoClose is invoked by the reader goroutine when it encounters a
// transport-ending error. It only closes if no other send/connect/close
// call is currently in flight; if the lock is held, that concurrent
// caller is responsible for reaching CLOSED.
func (t *Transport) tryAutoClose() {
	if !t.sendMu.TryLock() {
		log.Debugf("reader: close already in flight, deferring")
		return
	}
	defer t.sendMu.Unlock()
	t.closeLocked()
}

// NotifyReset fires a RESET status notification. The notification is
// delivered only if the transport's aliveness at delivery time equals
// expectedAlive; passing true avoids delivering RESET just after a
// near-simultaneous CLOSED.
func (t *Transport) NotifyReset(expectedAlive bool) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	gate := expectedAlive
	t.notifyListeners(StateReset, &gate)
}

// notifyListeners must be called with sendMu held, matching the required
// send_mu-then-listener-mu acquisition order.
func (t *Transport) notifyListeners(state State, expectedAlive *bool) {
	if expectedAlive != nil && *expectedAlive != t.alive.Load() {
		return
	}

	t.listenersMu.Lock()
	listeners := make([]listenerEntry, len(t.listeners))
	copy(listeners, t.listeners)
	t.listenersMu.Unlock()

	ts := time.Now().Unix()
	for _, l := range listeners {
		if l.spawn {
			go l.fn(t.notifySrc, state, ts)
		} else {
			l.fn(t.notifySrc, state, ts)
		}
	}
}

// AddStatusListener registers fn to be called on every state transition.
// When spawn is true, fn runs on its own goroutine per notification;
// otherwise it runs synchronously, in the caller's context, under the
// send lock.
func (t *Transport) AddStatusListener(fn StatusListener, spawn bool) ListenerHandle {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	t.nextHandle++
	h := ListenerHandle(t.nextHandle)
	t.listeners = append(t.listeners, listenerEntry{handle: h, fn: fn, spawn: spawn})
	return h
}

// RemoveStatusListener unregisters a listener previously returned by
// AddStatusListener.
func (t *Transport) RemoveStatusListener(h ListenerHandle) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	for i, l := range t.listeners {
		if l.handle == h {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

// Send encodes and writes message. On failure it closes the connection
// and returns the resulting SocketClosed/SocketError.
func (t *Transport) Send(message string, raw bool) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if !t.alive.Load() {
		return NewSocketClosed("transport is not connected", nil)
	}

	data := EncodeCommand(message, raw)
	if _, err := t.conn.Write(data); err != nil {
		se := classifyWriteErr(err)
		t.closeLocked()
		return se
	}
	return nil
}

func classifyWriteErr(err error) error {
	if errors.Is(err, net.ErrClosed) || isClosedConnErr(err) {
		return NewSocketClosed("write failed", err)
	}
	return NewSocketError("write failed", err)
}

// Receive blocks until one complete reply is decoded and delivered to
// this caller. It never returns event messages.
func (t *Transport) Receive() (*Reply, error) {
	item := t.slot.pop()
	if item.err != nil {
		return nil, item.err
	}
	return item.reply, nil
}

// Request sends message and waits for its reply, holding the request
// mutex for the duration so concurrent callers are serialized onto the
// transport's single reply slot. Before sending, it drains and logs any
// stale leftovers from a previous, already-abandoned call.
func (t *Transport) Request(message string) (*Reply, error) {
	t.requestMu.Lock()
	defer t.requestMu.Unlock()

	t.drainStaleLocked()

	if err := t.Send(message, false); err != nil {
		return nil, err
	}
	return t.Receive()
}

func (t *Transport) drainStaleLocked() {
	for _, item := range t.slot.drain() {
		switch {
		case item.err == nil:
			log.Warnf("discarding stray reply from a prior lost call: %v",
				strings.TrimSpace(item.reply.AllContent()))
		case isSocketClosed(item.err):
			log.Debugf("discarding stale SocketClosed from prior connection")
		default:
			log.Infof("discarding stale transport error: %v", item.err)
		}
	}
}

func isSocketClosed(err error) bool {
	var sc *SocketClosed
	return errors.As(err, &sc)
}

// readLoop is the transport's sole socket-reading goroutine. It decodes
// one reply at a time, shunting 650-coded replies to the event queue and
// everything else to the reply slot. Any decode or transport error is
// itself deposited into the reply slot -- the mechanism that unblocks a
// pending Request on disconnect -- and ends the loop.
func (t *Transport) readLoop() {
	for {
		reply, err := DecodeReply(t.r)
		if err != nil {
			t.slot.push(replyOrErr{err: err})
			t.tryAutoClose()
			return
		}

		if reply.IsEvent() {
			t.eventQ.push(reply)
			continue
		}
		t.slot.push(replyOrErr{reply: reply})
	}
}

// eventLoop drains the event queue off the reader's critical path so a
// slow subscriber cannot back-pressure framing. It waits for new work
// while the connection is alive and exits once the queue is empty and
// the connection has gone away.
func (t *Transport) eventLoop() {
	for {
		reply, ok := t.eventQ.popUnlessDone(t.alive.Load)
		if !ok {
			return
		}
		t.dispatchEvent(reply)
	}
}

package control

import "strings"

// Event is one asynchronous 650-coded notification from tor, decoded
// enough to dispatch on but otherwise left as raw lines: individual event
// types have wildly different payload shapes, and re-parsing all of them
// here would just duplicate what a handler already knows how to read.
type Event struct {
	Type  string
	Reply *Reply
}

// Content returns the event's first line content with the leading event
// type token stripped, which is where most single-line events (BW,
// STATUS_*, SIGNAL, ...) carry their payload.
func (e *Event) Content() string {
	_, rest := NextToken(e.Reply.Lines[0].Content)
	return rest
}

type eventHandlerEntry struct {
	id uint64
	fn func(Event)
}

// SetEvents tells tor which event types to stream, replacing any
// previously requested set. Calling it with no arguments disables all
// events.
func (s *Session) SetEvents(events ...string) error {
	cmd := "SETEVENTS"
	if len(events) > 0 {
		cmd += " " + strings.Join(events, " ")
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
		return setEventsError(line)
	}

	s.eventsMu.Lock()
	s.activeEvents = make(map[string]bool, len(events))
	for _, e := range events {
		s.activeEvents[strings.ToUpper(e)] = true
	}
	s.eventsMu.Unlock()
	return nil
}

func setEventsError(line *SingleLine) error {
	switch line.Code {
	case "552":
		return &InvalidArguments{InvalidRequest: InvalidRequest{Code: line.Code, Message: line.Message}}
	case "513", "553":
		return &InvalidRequest{Code: line.Code, Message: line.Message}
	default:
		return NewProtocolError("SETEVENTS failed: %s %s", line.Code, line.Message)
	}
}

// AddEventHandler registers fn to be called, on the transport's event
// dispatcher goroutine, for every event of eventType. It returns a cancel
// function that removes the handler again; calling it more than once is
// a no-op. AddEventHandler does not itself call SetEvents -- callers are
// expected to request the event types they register handlers for.
func (s *Session) AddEventHandler(eventType string, fn func(Event)) (cancel func()) {
	eventType = strings.ToUpper(eventType)

	s.eventsMu.Lock()
	s.nextEventID++
	id := s.nextEventID
	s.eventHandlers[eventType] = append(s.eventHandlers[eventType], eventHandlerEntry{id: id, fn: fn})
	s.eventsMu.Unlock()

	var once bool
	return func() {
		s.eventsMu.Lock()
		defer s.eventsMu.Unlock()
		if once {
			return
		}
		once = true
		handlers := s.eventHandlers[eventType]
		for i, h := range handlers {
			if h.id == id {
				s.eventHandlers[eventType] = append(handlers[:i], handlers[i+1:]...)
				return
			}
		}
	}
}

// handleEvent is installed via Transport.SetEventHandler in NewSession. It
// runs on the transport's event dispatcher goroutine, so handlers must not
// block on another Request to the same session without risking a
// deadlock against a concurrent reconnect.
func (s *Session) handleEvent(reply *Reply) {
	if len(reply.Lines) == 0 {
		return
	}
	eventType, _ := NextToken(reply.Lines[0].Content)
	eventType = strings.ToUpper(eventType)
	ev := Event{Type: eventType, Reply: reply}

	s.eventsMu.Lock()
	handlers := append([]eventHandlerEntry(nil), s.eventHandlers[eventType]...)
	handlers = append(handlers, s.eventHandlers["*"]...)
	s.eventsMu.Unlock()

	for _, h := range handlers {
		h.fn(ev)
	}
}

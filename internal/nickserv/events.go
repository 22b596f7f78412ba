package nickserv

// EventKind identifies an inbound protocol event the plugin subscribes to
type EventKind int

const (
	EventNotice EventKind = iota + 1
	EventNick
	EventQuit
	EventNicknameInUse
	EventRegistered
)

func (k EventKind) String() string {
	switch k {
	case EventNotice:
		return "notice"
	case EventNick:
		return "nick"
	case EventQuit:
		return "quit"
	case EventNicknameInUse:
		return "nickname-in-use"
	case EventRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// Event is a protocol event already parsed by the host
type Event struct {
	Kind EventKind

	// Nick is the source nickname (NOTICE, NICK, QUIT)
	Nick string
	// Text is the notice body
	Text string
	// Nickname is the new nickname for NICK, or the occupied nickname for
	// nickname-in-use errors
	Nickname string

	Connection Connection
}

// Connection is the per-connection state owned by the host
type Connection interface {
	Nickname() string
	SetNickname(nickname string)
}

// Queue accepts outbound commands. Enqueueing never fails from the
// plugin's point of view.
type Queue interface {
	Privmsg(target, text string)
	Nick(nickname string)
}

// Signal is an informational notification for other observers
type Signal string

const (
	// SignalIdentified is emitted when the agent confirms our identity
	SignalIdentified Signal = "nickserv.identified"
	// SignalIdentifySent is emitted after an IDENTIFY is queued
	SignalIdentifySent Signal = "nickserv.identify"
	// SignalGhostSent is emitted after a GHOST is queued
	SignalGhostSent Signal = "nickserv.ghost"
	// SignalReclaimed is emitted after the rename back to the reclaimed
	// nickname is queued
	SignalReclaimed Signal = "nickserv.reclaimed"
)

// Sink receives signals
type Sink interface {
	Emit(sig Signal, conn Connection)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(sig Signal, conn Connection)

// Emit calls f
func (f SinkFunc) Emit(sig Signal, conn Connection) { f(sig, conn) }

// Sinks fans a signal out to every member in order
type Sinks []Sink

// Emit implements Sink
func (s Sinks) Emit(sig Signal, conn Connection) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(sig, conn)
		}
	}
}

// HandlerFunc handles one kind of event
type HandlerFunc func(ev Event, q Queue)

// Dispatcher routes events through a table resolved once at construction
type Dispatcher struct {
	table map[EventKind]HandlerFunc
}

// NewDispatcher copies subs into a fixed routing table
func NewDispatcher(subs map[EventKind]HandlerFunc) *Dispatcher {
	table := make(map[EventKind]HandlerFunc, len(subs))
	for kind, h := range subs {
		if h != nil {
			table[kind] = h
		}
	}
	return &Dispatcher{table: table}
}

// Dispatch hands ev to its handler. It reports false when nothing is
// subscribed to ev.Kind.
func (d *Dispatcher) Dispatch(ev Event, q Queue) bool {
	h, ok := d.table[ev.Kind]
	if !ok {
		return false
	}
	h(ev, q)
	return true
}

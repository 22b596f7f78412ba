// Package nickserv authenticates the bot to a NickServ agent and reclaims
// the preferred nickname from a ghost connection.
//
// A Plugin is bound to a single connection attempt. Hosts deliver events to
// it one at a time and build a new Plugin after every disconnect.
package nickserv

import (
	"strings"

	"go.uber.org/zap"
)

// reclaim is the recovery sequence state. The zero value is idle.
type reclaim struct {
	nickname string
}

func (r reclaim) pending() bool { return r.nickname != "" }

// Plugin handles NickServ interaction for one connection
type Plugin struct {
	opts       Options
	classifier Classifier
	sink       Sink
	log        *zap.Logger

	state reclaim
	// registered is set once the server completes registration; collisions
	// after that are NICK retries, not connection setup
	registered bool
}

// Option customizes a Plugin
type Option func(*Plugin)

// WithClassifier replaces the pattern based classifier
func WithClassifier(c Classifier) Option {
	return func(p *Plugin) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithSink sets the observer for emitted signals
func WithSink(s Sink) Option {
	return func(p *Plugin) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the logger used for state transitions
func WithLogger(l *zap.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates raw configuration and builds a Plugin
func New(raw map[string]any, options ...Option) (*Plugin, error) {
	opts, err := ParseOptions(raw)
	if err != nil {
		return nil, err
	}
	return NewPlugin(opts, options...), nil
}

// NewPlugin builds a Plugin from already resolved options
func NewPlugin(opts Options, options ...Option) *Plugin {
	p := &Plugin{
		opts:       opts,
		classifier: NewPatternClassifier(opts),
		sink:       Sinks(nil),
		log:        zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	p.log = p.log.With(zap.String("agent", opts.BotNick))
	return p
}

// Subscriptions returns the handler for every event kind the plugin uses
func (p *Plugin) Subscriptions() map[EventKind]HandlerFunc {
	return map[EventKind]HandlerFunc{
		EventNotice:        p.HandleNotice,
		EventNick:          p.HandleNick,
		EventQuit:          p.HandleQuit,
		EventNicknameInUse: p.HandleNicknameInUse,
		EventRegistered:    p.HandleRegistered,
	}
}

// PendingNickname returns the nickname being reclaimed, if any
func (p *Plugin) PendingNickname() (string, bool) {
	return p.state.nickname, p.state.pending()
}

// HandleNotice responds to identify requests, identity confirmations and
// ghost confirmations from the agent. Notices from anyone else are ignored.
func (p *Plugin) HandleNotice(ev Event, q Queue) {
	if !strings.EqualFold(ev.Nick, p.opts.BotNick) {
		return
	}

	switch p.classifier.Classify(ev.Text) {
	case IntentIdentifyRequest:
		nick := ""
		if ev.Connection != nil {
			nick = ev.Connection.Nickname()
		}
		q.Privmsg(p.opts.BotNick, p.identifyCommand(nick))
		p.log.Debug("identify requested", zap.String("nick", nick))
		p.sink.Emit(SignalIdentifySent, ev.Connection)

	case IntentLoggedIn:
		p.log.Debug("identity confirmed")
		p.sink.Emit(SignalIdentified, ev.Connection)

	case IntentGhosted:
		if !p.state.pending() {
			return
		}
		nick := p.state.nickname
		p.state = reclaim{}
		q.Nick(nick)
		p.log.Debug("ghost confirmed, reclaiming", zap.String("nick", nick))
		p.sink.Emit(SignalReclaimed, ev.Connection)
	}
}

// HandleNick keeps the connection's nickname in sync with renames the
// server has confirmed.
func (p *Plugin) HandleNick(ev Event, q Queue) {
	conn := ev.Connection
	if conn == nil || ev.Nickname == "" {
		return
	}
	if strings.EqualFold(ev.Nick, conn.Nickname()) {
		conn.SetNickname(ev.Nickname)
	}
}

// HandleQuit reclaims the pending nickname when its holder quits on its
// own before the agent confirms the ghost.
func (p *Plugin) HandleQuit(ev Event, q Queue) {
	if !p.state.pending() || !strings.EqualFold(ev.Nick, p.state.nickname) {
		return
	}
	nick := p.state.nickname
	p.state = reclaim{}
	q.Nick(nick)
	p.log.Debug("ghost quit, reclaiming", zap.String("nick", nick))
	p.sink.Emit(SignalReclaimed, ev.Connection)
}

// HandleNicknameInUse remembers the first nickname rejected as in use
// during connection setup. Later collisions on alternate nicknames, and any
// collision after registration, do not arm the sequence.
func (p *Plugin) HandleNicknameInUse(ev Event, q Queue) {
	if !p.opts.Ghost || p.registered || p.state.pending() || ev.Nickname == "" {
		return
	}
	p.state = reclaim{nickname: ev.Nickname}
	p.log.Debug("nickname in use, reclaim pending", zap.String("nick", ev.Nickname))
}

// HandleRegistered asks the agent to kill the ghost once registration
// completes. The sequence stays pending until the agent confirms.
func (p *Plugin) HandleRegistered(ev Event, q Queue) {
	p.registered = true
	if !p.state.pending() {
		return
	}
	q.Privmsg(p.opts.BotNick, "GHOST "+p.state.nickname+" "+p.opts.Password)
	p.log.Debug("ghost requested", zap.String("nick", p.state.nickname))
	p.sink.Emit(SignalGhostSent, ev.Connection)
}

func (p *Plugin) identifyCommand(nick string) string {
	r := strings.NewReplacer("%nick%", nick, "%password%", p.opts.Password)
	return r.Replace(p.opts.IdentifyCommand)
}

package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"go.uber.org/zap"

	"github.com/dalnet/nickguard/internal/config"
	"github.com/dalnet/nickguard/internal/nickserv"
	"github.com/dalnet/nickguard/internal/storage"
)

// Version information, set by main from build flags
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Client represents the IRC bot client
type Client struct {
	conn *ircevent.Connection
	cfg  *config.Config
	log  *zap.Logger
	opts nickserv.Options

	// mu serializes event dispatch and guards the plugin
	mu         sync.Mutex
	session    *session
	plugin     *nickserv.Plugin
	dispatcher *nickserv.Dispatcher
	queue      nickserv.Queue
	sink       nickserv.Sink

	journal *storage.Journal

	// ctcpReply sends CTCP replies as NOTICEs
	ctcpReply func(target, text string) error
}

// NewClient creates a new IRC client. Invalid nickserv options fail
// construction.
func NewClient(cfg *config.Config, log *zap.Logger, sinks ...nickserv.Sink) (*Client, error) {
	opts, err := nickserv.ParseOptions(cfg.NickServ)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		log:     log,
		opts:    opts,
		session: newSession(cfg.Nick),
	}

	c.journal, err = storage.OpenJournal(cfg.DataDir)
	if err != nil {
		log.Warn("could not load identity journal", zap.Error(err))
	} else if last := c.journal.Recent(1); len(last) > 0 {
		log.Info("last identity event", zap.String("entry", last[0]))
	}

	// Create IRC connection
	conn := &ircevent.Connection{
		Server:      cfg.Address(),
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		Password:    cfg.ServerPass,
		QuitMessage: "Shutting down",
		UseTLS:      cfg.UseTLS,
		TLSConfig:   &tls.Config{ServerName: cfg.Server},
		Log:         zap.NewStdLog(log.Named("ircevent")),
	}
	// Every connection attempt starts from a clean nickserv state, including
	// attempts that failed before the server welcomed us
	dialer := &net.Dialer{}
	conn.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		c.beginAttempt()
		return dialer.DialContext(ctx, network, addr)
	}
	c.conn = conn
	c.queue = newCommandQueue(conn, log)
	c.ctcpReply = conn.Notice

	c.sink = append(nickserv.Sinks{nickserv.SinkFunc(c.logSignal), nickserv.SinkFunc(c.recordSignal)}, sinks...)
	c.resetLocked()

	// Register handlers
	c.registerHandlers()

	return c, nil
}

func (c *Client) registerHandlers() {
	// Welcome carries the nickname the server actually gave us
	c.conn.AddCallback("001", c.handle)

	// Registration complete (end of MOTD / MOTD missing)
	c.conn.AddCallback("376", c.onConnect)
	c.conn.AddCallback("422", c.onConnect)

	c.conn.AddCallback("NOTICE", c.handle)
	c.conn.AddCallback("NICK", c.handle)
	c.conn.AddCallback("QUIT", c.handle)
	c.conn.AddCallback("433", c.handle) // ERR_NICKNAMEINUSE

	c.conn.AddCallback("PRIVMSG", c.onPrivMsg)

	c.conn.AddDisconnectCallback(c.onDisconnect)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC
func (c *Client) Quit() {
	c.conn.Quit()
}

// handle translates a protocol line and dispatches it to the plugin
func (c *Client) handle(e ircmsg.Message) {
	if e.Command == "001" {
		if len(e.Params) > 0 {
			c.session.SetNickname(e.Params[0])
		}
		return
	}

	ev, ok := translate(e)
	if !ok {
		return
	}
	c.dispatch(ev)
}

func (c *Client) dispatch(ev nickserv.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev.Connection = c.session
	c.dispatcher.Dispatch(ev, c.queue)
}

func (c *Client) onConnect(e ircmsg.Message) {
	c.log.Info("registered with server", zap.String("server", e.Source), zap.String("nick", c.session.Nickname()))

	c.dispatch(nickserv.Event{Kind: nickserv.EventRegistered})

	// OPER up
	if c.cfg.OperNick != "" && c.cfg.OperPass != "" {
		if err := c.conn.Send("OPER", c.cfg.OperNick, c.cfg.OperPass); err != nil {
			c.log.Warn("oper failed", zap.Error(err))
		}
	}

	if c.cfg.UserModes != "" {
		for _, modes := range strings.Fields(c.cfg.UserModes) {
			if err := c.conn.Send("MODE", c.conn.CurrentNick(), modes); err != nil {
				c.log.Warn("setting user modes failed", zap.String("modes", modes), zap.Error(err))
			}
		}
	}
}

// onPrivMsg answers CTCP VERSION; other private messages are ignored
func (c *Client) onPrivMsg(e ircmsg.Message) {
	if len(e.Params) < 2 || e.Params[1] != "\x01VERSION\x01" {
		return
	}
	reply := fmt.Sprintf("nickguard %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	if err := c.ctcpReply(e.Nick(), "\x01VERSION "+reply+"\x01"); err != nil {
		c.log.Warn("ctcp version reply failed", zap.String("target", e.Nick()), zap.Error(err))
	}
}

func (c *Client) onDisconnect(e ircmsg.Message) {
	c.log.Info("disconnected, resetting nickserv state")
	c.beginAttempt()
}

// beginAttempt restores the configured nickname and builds a fresh plugin
func (c *Client) beginAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.SetNickname(c.cfg.Nick)
	c.resetLocked()
}

// resetLocked builds a fresh plugin for the next connection attempt.
// Callers hold c.mu, or own c exclusively.
func (c *Client) resetLocked() {
	c.plugin = nickserv.NewPlugin(c.opts,
		nickserv.WithSink(c.sink),
		nickserv.WithLogger(c.log.Named("nickserv")),
	)
	c.dispatcher = nickserv.NewDispatcher(c.plugin.Subscriptions())
}

func (c *Client) logSignal(sig nickserv.Signal, conn nickserv.Connection) {
	c.log.Info("nickserv signal", zap.String("signal", string(sig)), zap.String("nick", nicknameOf(conn)))
}

func (c *Client) recordSignal(sig nickserv.Signal, conn nickserv.Connection) {
	if c.journal == nil {
		return
	}
	timestamp := time.Now().UTC().Format("Mon Jan 02, 2006 at 15:04:05 GMT")
	entry := fmt.Sprintf("%s: %s -> %s", timestamp, nicknameOf(conn), sig)
	if err := c.journal.Record(entry); err != nil {
		c.log.Warn("error saving identity journal", zap.Error(err))
	}
}

func nicknameOf(conn nickserv.Connection) string {
	if conn == nil {
		return ""
	}
	return conn.Nickname()
}

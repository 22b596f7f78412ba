package irc

import (
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"go.uber.org/zap"

	"github.com/dalnet/nickguard/internal/nickserv"
)

// session is the per-connection nickname record handed to the plugin
type session struct {
	mu   sync.RWMutex
	nick string
}

func newSession(nick string) *session {
	return &session{nick: nick}
}

func (s *session) Nickname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nick
}

func (s *session) SetNickname(nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nick = nickname
}

// commandQueue forwards plugin commands to the connection's send queue.
// Message bodies are never logged, they may carry the password.
type commandQueue struct {
	privmsg func(target, text string) error
	nick    func(nickname string)
	log     *zap.Logger
}

func newCommandQueue(conn *ircevent.Connection, log *zap.Logger) *commandQueue {
	return &commandQueue{
		privmsg: conn.Privmsg,
		nick:    func(nickname string) { conn.SetNick(nickname) },
		log:     log,
	}
}

func (q *commandQueue) Privmsg(target, text string) {
	if err := q.privmsg(target, text); err != nil {
		q.log.Warn("privmsg failed", zap.String("target", target), zap.Error(err))
	}
}

func (q *commandQueue) Nick(nickname string) {
	q.nick(nickname)
}

// translate maps a protocol line onto a plugin event
func translate(e ircmsg.Message) (nickserv.Event, bool) {
	switch e.Command {
	case "NOTICE":
		// NOTICE <target> :<text>, private notices only
		if len(e.Params) < 2 || isChannel(e.Params[0]) {
			break
		}
		return nickserv.Event{Kind: nickserv.EventNotice, Nick: e.Nick(), Text: e.Params[1]}, true

	case "NICK":
		// :<old>!user@host NICK <new>
		if len(e.Params) < 1 {
			break
		}
		return nickserv.Event{Kind: nickserv.EventNick, Nick: e.Nick(), Nickname: e.Params[0]}, true

	case "QUIT":
		return nickserv.Event{Kind: nickserv.EventQuit, Nick: e.Nick()}, true

	case "433":
		// 433 <client> <nick> :Nickname is already in use
		if len(e.Params) < 2 {
			break
		}
		return nickserv.Event{Kind: nickserv.EventNicknameInUse, Nickname: e.Params[1]}, true
	}
	return nickserv.Event{}, false
}

func isChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}

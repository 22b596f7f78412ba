package nickserv

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type command struct {
	Verb   string
	Target string
	Text   string
}

type recordingQueue struct {
	commands []command
}

func (q *recordingQueue) Privmsg(target, text string) {
	q.commands = append(q.commands, command{Verb: "PRIVMSG", Target: target, Text: text})
}

func (q *recordingQueue) Nick(nickname string) {
	q.commands = append(q.commands, command{Verb: "NICK", Target: nickname})
}

type fakeConnection struct {
	nick string
	sets []string
}

func (c *fakeConnection) Nickname() string { return c.nick }

func (c *fakeConnection) SetNickname(nickname string) {
	c.nick = nickname
	c.sets = append(c.sets, nickname)
}

type recordingSink struct {
	signals []Signal
}

func (s *recordingSink) Emit(sig Signal, conn Connection) {
	s.signals = append(s.signals, sig)
}

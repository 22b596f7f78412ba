package nickserv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authRequest = "This nickname is registered. Please choose a different nickname, or identify via /msg NickServ identify <password>."

type fixture struct {
	plugin *Plugin
	queue  *recordingQueue
	conn   *fakeConnection
	sink   *recordingSink
}

func newFixture(t *testing.T, raw map[string]any, options ...Option) *fixture {
	t.Helper()
	f := &fixture{
		queue: &recordingQueue{},
		conn:  &fakeConnection{nick: "Phergie"},
		sink:  &recordingSink{},
	}
	p, err := New(raw, append([]Option{WithSink(f.sink)}, options...)...)
	require.NoError(t, err)
	f.plugin = p
	return f
}

func (f *fixture) notice(from, text string) {
	f.plugin.HandleNotice(Event{Kind: EventNotice, Nick: from, Text: text, Connection: f.conn}, f.queue)
}

func (f *fixture) nicknameInUse(nick string) {
	f.plugin.HandleNicknameInUse(Event{Kind: EventNicknameInUse, Nickname: nick, Connection: f.conn}, f.queue)
}

func (f *fixture) registered() {
	f.plugin.HandleRegistered(Event{Kind: EventRegistered, Connection: f.conn}, f.queue)
}

func ghostConfig() map[string]any {
	return map[string]any{"password": "password", "ghost": true}
}

func TestHandleNoticeFromOtherUser(t *testing.T) {
	f := newFixture(t, ghostConfig())

	for _, text := range []string{authRequest, "You are now identified for Phergie", "Phergie has been ghosted."} {
		f.notice("foo", text)
	}
	f.nicknameInUse("Phergie")
	f.notice("NickServ!", "Phergie has been ghosted.")

	assert.Empty(t, f.queue.commands)
	assert.Empty(t, f.sink.signals)
}

func TestHandleNoticeIrrelevant(t *testing.T) {
	f := newFixture(t, ghostConfig())

	f.notice("NickServ", "You are already logged in as Phergie")

	assert.Empty(t, f.queue.commands)
	assert.Empty(t, f.sink.signals)
}

func TestHandleNoticeAuthenticationRequest(t *testing.T) {
	f := newFixture(t, ghostConfig())

	f.notice("nickserv", authRequest)

	want := []command{{Verb: "PRIVMSG", Target: "NickServ", Text: "IDENTIFY Phergie password"}}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Signal{SignalIdentifySent}, f.sink.signals)
}

func TestHandleNoticeCustomIdentifyCommand(t *testing.T) {
	f := newFixture(t, map[string]any{
		"password":        "s3cret",
		"botnick":         "AuthServ",
		"identifycommand": "AUTH %password% AS %nick%",
	})
	f.conn.nick = "Bot_"

	f.notice("AUTHSERV", authRequest)

	want := []command{{Verb: "PRIVMSG", Target: "AuthServ", Text: "AUTH s3cret AS Bot_"}}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleNoticeIdentityConfirmation(t *testing.T) {
	f := newFixture(t, ghostConfig())

	f.notice("NickServ", "You are now identified for Phergie")

	assert.Empty(t, f.queue.commands)
	assert.Equal(t, []Signal{SignalIdentified}, f.sink.signals)
}

func TestHandleNoticeFirstMatchWins(t *testing.T) {
	f := newFixture(t, ghostConfig())
	f.nicknameInUse("Phergie")

	f.notice("NickServ", authRequest+" Phergie has been ghosted.")

	want := []command{{Verb: "PRIVMSG", Target: "NickServ", Text: "IDENTIFY Phergie password"}}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	nick, pending := f.plugin.PendingNickname()
	assert.True(t, pending)
	assert.Equal(t, "Phergie", nick)
}

func TestGhostSequence(t *testing.T) {
	f := newFixture(t, ghostConfig())

	// nothing pending yet
	f.notice("NickServ", "Phergie has been ghosted.")
	assert.Empty(t, f.queue.commands)

	f.nicknameInUse("Phergie")
	nick, pending := f.plugin.PendingNickname()
	require.True(t, pending)
	assert.Equal(t, "Phergie", nick)

	f.nicknameInUse("SomeOtherNick")
	nick, _ = f.plugin.PendingNickname()
	assert.Equal(t, "Phergie", nick)
	assert.Empty(t, f.queue.commands)

	f.registered()
	want := []command{{Verb: "PRIVMSG", Target: "NickServ", Text: "GHOST Phergie password"}}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Fatalf("commands after registration mismatch (-want +got):\n%s", diff)
	}
	_, pending = f.plugin.PendingNickname()
	assert.True(t, pending)

	f.notice("NickServ", "Phergie has been ghosted.")
	want = append(want, command{Verb: "NICK", Target: "Phergie"})
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Fatalf("commands after ghost mismatch (-want +got):\n%s", diff)
	}
	_, pending = f.plugin.PendingNickname()
	assert.False(t, pending)

	f.notice("NickServ", "Phergie has been ghosted.")
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("repeat notice queued commands (-want +got):\n%s", diff)
	}

	assert.Equal(t, []Signal{SignalGhostSent, SignalReclaimed}, f.sink.signals)
}

func TestNicknameInUseWithoutGhost(t *testing.T) {
	f := newFixture(t, map[string]any{"password": "password"})

	f.nicknameInUse("Phergie")
	f.registered()

	_, pending := f.plugin.PendingNickname()
	assert.False(t, pending)
	assert.Empty(t, f.queue.commands)
}

func TestNicknameInUseAfterRegistrationIgnored(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		f := newFixture(t, ghostConfig())

		f.registered()
		f.nicknameInUse("Taken")
		_, pending := f.plugin.PendingNickname()
		assert.False(t, pending)

		f.notice("NickServ", "Someone has been ghosted.")
		assert.Empty(t, f.queue.commands)
		assert.Empty(t, f.sink.signals)
	})

	t.Run("reclaim in progress", func(t *testing.T) {
		f := newFixture(t, ghostConfig())

		f.nicknameInUse("Phergie")
		f.registered()
		f.nicknameInUse("Taken")
		nick, pending := f.plugin.PendingNickname()
		require.True(t, pending)
		assert.Equal(t, "Phergie", nick)

		f.notice("NickServ", "Phergie has been ghosted.")
		f.nicknameInUse("Phergie")
		_, pending = f.plugin.PendingNickname()
		assert.False(t, pending)

		want := []command{
			{Verb: "PRIVMSG", Target: "NickServ", Text: "GHOST Phergie password"},
			{Verb: "NICK", Target: "Phergie"},
		}
		if diff := cmp.Diff(want, f.queue.commands); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestHandleQuit(t *testing.T) {
	f := newFixture(t, ghostConfig())

	quit := func(nick string) {
		f.plugin.HandleQuit(Event{Kind: EventQuit, Nick: nick, Connection: f.conn}, f.queue)
	}

	quit("Phergie")
	assert.Empty(t, f.queue.commands)

	f.nicknameInUse("Phergie")
	quit("someone")
	assert.Empty(t, f.queue.commands)

	quit("PHERGIE")
	quit("Phergie")
	want := []command{{Verb: "NICK", Target: "Phergie"}}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	_, pending := f.plugin.PendingNickname()
	assert.False(t, pending)
	assert.Equal(t, []Signal{SignalReclaimed}, f.sink.signals)
}

func TestHandleNick(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		want    string
		changed bool
	}{
		{"unrelated nick", "foo", "bar", "Phergie", false},
		{"own nick", "Phergie", "Phergie_", "Phergie_", true},
		{"own nick different case", "pHERGIE", "Phergie2", "Phergie2", true},
		{"empty new nick", "Phergie", "", "Phergie", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ghostConfig())
			f.plugin.HandleNick(Event{Kind: EventNick, Nick: tt.from, Nickname: tt.to, Connection: f.conn}, f.queue)

			assert.Equal(t, tt.want, f.conn.nick)
			assert.Equal(t, tt.changed, len(f.conn.sets) == 1)
			assert.Empty(t, f.queue.commands)
		})
	}
}

func TestWithClassifier(t *testing.T) {
	classifier := ClassifierFunc(func(text string) Intent {
		if text == "auth please" {
			return IntentIdentifyRequest
		}
		return IntentNone
	})
	f := newFixture(t, ghostConfig(), WithClassifier(classifier))

	f.notice("NickServ", authRequest)
	assert.Empty(t, f.queue.commands)

	f.notice("NickServ", "auth please")
	assert.Len(t, f.queue.commands, 1)
}

func TestDispatcher(t *testing.T) {
	f := newFixture(t, ghostConfig())
	d := NewDispatcher(f.plugin.Subscriptions())

	events := []Event{
		{Kind: EventNicknameInUse, Nickname: "Phergie"},
		{Kind: EventRegistered},
		{Kind: EventNotice, Nick: "NickServ", Text: "Phergie has been ghosted."},
		{Kind: EventNick, Nick: "Phergie_", Nickname: "Phergie"},
		{Kind: EventNotice, Nick: "NickServ", Text: authRequest},
	}
	f.conn.nick = "Phergie_"
	for _, ev := range events {
		ev.Connection = f.conn
		assert.True(t, d.Dispatch(ev, f.queue), "event %s not routed", ev.Kind)
	}
	assert.False(t, d.Dispatch(Event{Kind: EventKind(99)}, f.queue))

	want := []command{
		{Verb: "PRIVMSG", Target: "NickServ", Text: "GHOST Phergie password"},
		{Verb: "NICK", Target: "Phergie"},
		{Verb: "PRIVMSG", Target: "NickServ", Text: "IDENTIFY Phergie password"},
	}
	if diff := cmp.Diff(want, f.queue.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Phergie", f.conn.nick)
}

func TestSinks(t *testing.T) {
	var got []Signal
	a := &recordingSink{}
	sinks := Sinks{a, nil, SinkFunc(func(sig Signal, conn Connection) { got = append(got, sig) })}

	sinks.Emit(SignalIdentified, nil)

	assert.Equal(t, []Signal{SignalIdentified}, a.signals)
	assert.Equal(t, []Signal{SignalIdentified}, got)
}

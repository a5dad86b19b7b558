package realtime

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

const openPacket = `0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`

// fakeServer speaks just enough Engine.IO/Socket.IO to exercise the channel.
type fakeServer struct {
	t      *testing.T
	srv    *httptest.Server
	conns  chan *serverConn
	reject atomic.Bool
}

type serverConn struct {
	ws     *websocket.Conn
	frames chan string
}

func (c *serverConn) send(t *testing.T, frame string) {
	t.Helper()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (c *serverConn) expect(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got, ok := <-c.frames:
			if !ok {
				t.Fatalf("connection closed while waiting for %q", want)
			}
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for frame %q", want)
		}
	}
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, conns: make(chan *serverConn, 8)}
	upgrader := websocket.Upgrader{}

	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			t.Errorf("unexpected request %s", r.URL)
			http.NotFound(w, r)
			return
		}
		if fs.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		if err := ws.WriteMessage(websocket.TextMessage, []byte(openPacket)); err != nil {
			return
		}
		_, msg, err := ws.ReadMessage()
		if err != nil || string(msg) != "40" {
			t.Errorf("expected namespace connect, got %q (%v)", msg, err)
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"ns-1"}`)); err != nil {
			return
		}

		sc := &serverConn{ws: ws, frames: make(chan string, 32)}
		fs.conns <- sc
		defer close(sc.frames)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			sc.frames <- string(msg)
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client connection")
		return nil
	}
}

func newTestChannel(t *testing.T, attempts int) *Channel {
	t.Helper()
	ch := New(zerolog.Nop(), Options{ReconnectAttempts: attempts, ReconnectDelay: 10 * time.Millisecond})
	t.Cleanup(ch.Disconnect)
	return ch
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectConnection(t *testing.T, events <-chan Event, connected bool) {
	t.Helper()
	ev := nextEvent(t, events)
	cc, ok := ev.(ConnectionChanged)
	if !ok || cc.Connected != connected {
		t.Fatalf("expected ConnectionChanged{%v}, got %#v", connected, ev)
	}
}

func TestConnectAndJoin(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 0)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	conn := fs.accept(t)
	expectConnection(t, events, true)

	if !ch.Connected() {
		t.Error("expected Connected() after handshake")
	}
	if !ch.JoinSession("ABC123", models.RoleCreator) {
		t.Fatal("JoinSession returned false while connected")
	}
	conn.expect(t, `42["join_session",{"session_id":"ABC123","user_role":"user1"}]`)
}

func TestEventsDeliveredInOrder(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 0)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	conn := fs.accept(t)
	expectConnection(t, events, true)

	conn.send(t, `42["user_joined",{"user_name":"Bob","user_language":"en"}]`)
	conn.send(t, `42["session_joined",{"session_id":"ABC123"}]`)
	conn.send(t, `42["new_message",{"sender_role":"user2","original_text":"hello","translated_text":"hola","audio_url":"/a/1.mp3"}]`)
	conn.send(t, `42["new_message",{"sender_role":"user2","original_text":"bye","translated_text":"adiós","audio_url":"/a/2.mp3"}]`)
	conn.send(t, `42["error",{"message":"Session not found"}]`)

	joined, ok := nextEvent(t, events).(UserJoined)
	if !ok || joined.User.UserName != "Bob" || joined.User.UserLanguage != "en" {
		t.Fatalf("expected UserJoined for Bob, got %#v", joined)
	}
	for _, want := range []string{"hello", "bye"} {
		msg, ok := nextEvent(t, events).(NewMessage)
		if !ok {
			t.Fatalf("expected NewMessage %q", want)
		}
		if msg.Message.OriginalText != want {
			t.Errorf("message = %q, want %q", msg.Message.OriginalText, want)
		}
	}
	ce, ok := nextEvent(t, events).(ConnectionError)
	if !ok || string(ce.Payload) != `{"message":"Session not found"}` {
		t.Errorf("expected ConnectionError with payload, got %#v", ce)
	}
}

// logBuffer collects log output written from the channel's goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServerErrorEventLeftToConsumer(t *testing.T) {
	fs := newFakeServer(t)
	var logs logBuffer
	ch := New(zerolog.New(&logs), Options{})
	t.Cleanup(ch.Disconnect)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	conn := fs.accept(t)
	expectConnection(t, events, true)

	conn.send(t, `42["error",{"message":"Session not found"}]`)
	if _, ok := nextEvent(t, events).(ConnectionError); !ok {
		t.Fatal("expected ConnectionError")
	}

	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "server error event") && strings.Contains(line, `"level":"error"`) {
			t.Errorf("server error event logged at error level by the channel: %s", line)
		}
	}
	if !strings.Contains(logs.String(), "server error event") {
		t.Error("expected a debug trace of the error event")
	}
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 0)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := fs.accept(t)
	conn.send(t, "2")
	conn.expect(t, "3")
}

func TestConnectIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 0)

	for i := 0; i < 3; i++ {
		if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	fs.accept(t)

	select {
	case <-fs.conns:
		t.Fatal("second connection opened")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestJoinWhileDisconnectedIsDropped(t *testing.T) {
	ch := newTestChannel(t, 0)
	if ch.JoinSession("ABC123", models.RoleJoiner) {
		t.Error("JoinSession should report false when disconnected")
	}
	if ch.Connected() {
		t.Error("new channel should not be connected")
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 3)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	first := fs.accept(t)
	expectConnection(t, events, true)

	first.ws.Close()
	expectConnection(t, events, false)

	second := fs.accept(t)
	expectConnection(t, events, true)

	// joins go out on the new connection
	if !ch.JoinSession("ABC123", models.RoleJoiner) {
		t.Fatal("JoinSession after reconnect returned false")
	}
	second.expect(t, `42["join_session",{"session_id":"ABC123","user_role":"user2"}]`)
}

func TestReconnectAttemptsExhausted(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 2)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	conn := fs.accept(t)
	expectConnection(t, events, true)

	fs.reject.Store(true)
	conn.ws.Close()
	expectConnection(t, events, false)

	ce, ok := nextEvent(t, events).(ConnectionError)
	if !ok || !errors.Is(ce.Err, ErrReconnectFailed) {
		t.Fatalf("expected ErrReconnectFailed, got %#v", ce)
	}
	if ch.Connected() {
		t.Error("channel should be disconnected after giving up")
	}

	// a later Connect starts a fresh loop
	fs.reject.Store(false)
	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fs.accept(t)
	expectConnection(t, events, true)
}

func TestDisconnect(t *testing.T) {
	fs := newFakeServer(t)
	ch := newTestChannel(t, 3)

	if err := ch.Connect(context.Background(), fs.srv.URL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events := ch.Events()
	conn := fs.accept(t)
	expectConnection(t, events, true)

	ch.Disconnect()
	conn.expect(t, "41")

	if ch.Connected() {
		t.Error("Connected() after Disconnect")
	}
	ch.Disconnect()

	if !drained(events, 2*time.Second) {
		t.Fatal("event stream not closed after Disconnect")
	}
	if _, ok := <-ch.Events(); ok {
		t.Error("Events() after Disconnect should be closed")
	}

	select {
	case <-fs.conns:
		t.Error("channel reconnected after Disconnect")
	case <-time.After(100 * time.Millisecond):
	}
}

// drained reads events until the stream closes or the timeout expires.
func drained(events <-chan Event, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func TestConnectRejectsBadEndpoint(t *testing.T) {
	ch := newTestChannel(t, 0)
	if err := ch.Connect(context.Background(), "://bad"); err == nil {
		t.Error("expected error for malformed endpoint")
	}
}

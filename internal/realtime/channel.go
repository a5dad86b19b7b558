// Package realtime maintains the Socket.IO connection that pushes peer
// messages and presence to the client.
//
// Only the websocket transport is used: the client dials
// /socket.io/?EIO=4&transport=websocket, answers Engine.IO pings, and joins
// the default namespace. Reconnection is part of the transport: a lost
// connection is redialed after a fixed delay, up to a bounded number of
// attempts. Application state such as the session join is not replayed;
// consumers watch ConnectionChanged and re-announce themselves.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/internal/ids"
	"github.com/eldtechnologies/talkbridge/internal/metrics"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	defaultPath      = "/socket.io/"
)

// Server → client event names.
const (
	eventNewMessage    = "new_message"
	eventUserJoined    = "user_joined"
	eventSessionJoined = "session_joined"
	eventError         = "error"
)

// eventJoinSession is the client → server join announcement.
const eventJoinSession = "join_session"

// Options configures the transport's reconnection policy.
type Options struct {
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Dialer            *websocket.Dialer
	Path              string
}

// Channel is a persistent Socket.IO connection.
type Channel struct {
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
	events    *queue

	writeMu sync.Mutex
}

// New creates a disconnected channel.
func New(logger zerolog.Logger, opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}
	if opts.Path == "" {
		opts.Path = defaultPath
	}
	return &Channel{
		opts:   opts,
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

// socketURL converts an HTTP endpoint into the Engine.IO websocket URL.
func socketURL(endpoint, path string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid realtime endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid realtime endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect starts the connection loop. It returns immediately and is a
// no-op while a loop is already running.
func (c *Channel) Connect(ctx context.Context, endpoint string) error {
	target, err := socketURL(endpoint, c.opts.Path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
			// previous loop gave up; start over on the same event stream
		default:
			return nil
		}
	}
	if c.events == nil {
		c.events = newQueue()
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(loopCtx, target, c.events, c.done)
	return nil
}

// Events returns the ordered event stream of the current connection.
// The channel is closed by Disconnect.
func (c *Channel) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		closed := make(chan Event)
		close(closed)
		return closed
	}
	return c.events.out
}

// Connected reports whether the transport is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// JoinSession announces the client in a session. The announcement is
// dropped when the transport is down; it reports whether it was sent.
func (c *Channel) JoinSession(sessionID string, role models.Role) bool {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Debug().Str("session_id", sessionID).Msg("join dropped while disconnected")
		return false
	}

	frame, err := encodeEvent(eventJoinSession, models.JoinSessionPayload{SessionID: sessionID, UserRole: role})
	if err != nil {
		c.logger.Error().Err(err).Msg("encode join_session")
		return false
	}
	if err := c.write(conn, frame); err != nil {
		c.logger.Warn().Err(err).Msg("send join_session failed")
		return false
	}

	c.logger.Info().Str("session_id", sessionID).Str("role", string(role)).Msg("joined session")
	return true
}

// Disconnect tears the connection down. It is safe to call when already
// disconnected, and no event is delivered after it returns.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done, events, conn := c.cancel, c.done, c.events, c.conn
	c.cancel, c.done, c.events = nil, nil, nil
	c.mu.Unlock()

	if conn != nil {
		_ = c.write(conn, disconnectFrame())
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if events != nil {
		events.close()
		c.logger.Info().Msg("disconnected")
	}
}

func (c *Channel) write(conn *websocket.Conn, frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// run dials and redials until ctx is cancelled or the reconnection policy
// gives up.
func (c *Channel) run(ctx context.Context, target string, q *queue, done chan struct{}) {
	defer close(done)

	policy := newReconnection(c.opts)
	for {
		wasConnected, err := c.session(ctx, target, q)
		if ctx.Err() != nil {
			return
		}
		if wasConnected {
			policy.reset()
		}
		if err != nil {
			c.logger.Warn().Err(err).Msg("realtime connection lost")
		}

		if policy.exhausted() {
			c.logger.Warn().Int("attempts", policy.tries).Msg("giving up on realtime connection")
			q.push(ConnectionError{Err: ErrReconnectFailed})
			return
		}
		metrics.RealtimeReconnects.Inc()
		if !policy.backoff(ctx) {
			return
		}
		c.logger.Info().Int("attempt", policy.tries).Msg("reconnecting")
	}
}

// session runs one connection from dial to close. It reports whether the
// namespace handshake completed.
func (c *Channel) session(ctx context.Context, target string, q *queue) (bool, error) {
	conn, _, err := c.opts.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	open, err := c.handshake(conn)
	if err != nil {
		return false, err
	}
	readWait := time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	if readWait <= 0 {
		readWait = 45 * time.Second
	}

	trace := ids.NewUUIDv7().String()
	c.mu.Lock()
	c.conn, c.connected = conn, true
	c.mu.Unlock()
	c.logger.Info().Str("sid", open.SID).Str("trace", trace).Msg("realtime connected")
	q.push(ConnectionChanged{Connected: true})

	defer func() {
		c.mu.Lock()
		c.conn, c.connected = nil, false
		c.mu.Unlock()
		c.logger.Info().Str("trace", trace).Msg("realtime disconnected")
		q.push(ConnectionChanged{Connected: false})
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return true, err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return true, err
		}

		p, err := decodePacket(string(raw))
		if err != nil {
			c.logger.Debug().Err(err).Msg("skipping malformed packet")
			continue
		}

		switch p.engine {
		case enginePing:
			if err := c.write(conn, string([]byte{enginePong})); err != nil {
				return true, err
			}
		case engineClose:
			return true, nil
		case engineMessage:
			switch p.socket {
			case socketEvent:
				c.dispatch(p.data, q)
			case socketDisconnect:
				return true, errors.New("server closed namespace")
			case socketConnectError:
				q.push(ConnectionError{Err: errors.New("namespace connect error"), Payload: json.RawMessage(p.data)})
			}
		case engineNoop, enginePong:
		default:
			c.logger.Debug().Str("type", string(p.engine)).Msg("unhandled engine packet")
		}
	}
}

// handshake reads the Engine.IO open packet and joins the default namespace.
func (c *Channel) handshake(conn *websocket.Conn) (openPayload, error) {
	var open openPayload

	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return open, err
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return open, fmt.Errorf("read open packet: %w", err)
	}
	p, err := decodePacket(string(raw))
	if err != nil || p.engine != engineOpen {
		return open, fmt.Errorf("unexpected handshake packet %q", raw)
	}
	if err := json.Unmarshal([]byte(p.data), &open); err != nil {
		return open, fmt.Errorf("decode open packet: %w", err)
	}

	if err := c.write(conn, connectFrame()); err != nil {
		return open, fmt.Errorf("send namespace connect: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return open, fmt.Errorf("await namespace connect: %w", err)
		}
		p, err := decodePacket(string(raw))
		if err != nil {
			continue
		}
		switch {
		case p.engine == enginePing:
			if err := c.write(conn, string([]byte{enginePong})); err != nil {
				return open, err
			}
		case p.engine == engineMessage && p.socket == socketConnect:
			return open, nil
		case p.engine == engineMessage && p.socket == socketConnectError:
			return open, fmt.Errorf("namespace connect rejected: %s", p.data)
		}
	}
}

// dispatch turns a Socket.IO event into a typed Event.
func (c *Channel) dispatch(data string, q *queue) {
	name, arg, err := decodeEvent(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed event")
		return
	}
	metrics.RealtimeEvents.WithLabelValues(name).Inc()

	switch name {
	case eventNewMessage:
		var msg models.MessagePayload
		if err := json.Unmarshal(arg, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("malformed new_message")
			return
		}
		c.logger.Debug().Str("sender_role", string(msg.SenderRole)).Msg("new message received")
		q.push(NewMessage{Message: msg})

	case eventUserJoined:
		var user models.UserJoinedPayload
		if err := json.Unmarshal(arg, &user); err != nil {
			c.logger.Warn().Err(err).Msg("malformed user_joined")
			return
		}
		c.logger.Info().Str("user_name", user.UserName).Msg("user joined session")
		q.push(UserJoined{User: user})

	case eventError:
		// consumers report the error; keep only a trace here
		c.logger.Debug().RawJSON("payload", jsonOrNull(arg)).Msg("server error event")
		q.push(ConnectionError{Err: errors.New("server error event"), Payload: arg})

	case eventSessionJoined:
		c.logger.Debug().RawJSON("payload", jsonOrNull(arg)).Msg("session join acknowledged")

	default:
		c.logger.Debug().Str("event", name).Msg("ignoring event")
	}
}

func jsonOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

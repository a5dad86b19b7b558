// Package conversation coordinates a chat screen: it merges locally sent
// utterances and peer messages into one thread and drives the recorder.
//
// All controller state lives behind one mutex, and channel events are
// handled by a single goroutine in delivery order. Callers read state
// through accessors that return copies.
package conversation

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/ids"
	"github.com/eldtechnologies/talkbridge/internal/metrics"
	"github.com/eldtechnologies/talkbridge/internal/models"
	"github.com/eldtechnologies/talkbridge/internal/realtime"
	"github.com/eldtechnologies/talkbridge/internal/recorder"
	"github.com/eldtechnologies/talkbridge/internal/session"
	"github.com/eldtechnologies/talkbridge/internal/store"
)

const (
	DefaultMinUtteranceBytes = 5000
	archiveTimeout           = 5 * time.Second
)

// Gateway is the translation server as the controller uses it.
type Gateway interface {
	GetMessages(ctx context.Context, sessionID string) (*talkbridge.MessagesResponse, error)
	SendMessage(ctx context.Context, req talkbridge.SendMessageRequest) (*talkbridge.TranslationResponse, error)
}

// Channel is the realtime connection as the controller uses it.
type Channel interface {
	Connect(ctx context.Context, endpoint string) error
	JoinSession(sessionID string, role models.Role) bool
	Events() <-chan realtime.Event
	Disconnect()
}

// Recorder is the audio subsystem as the controller uses it.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (recorder.Audio, error)
	Playback(ctx context.Context, url string) error
	Release()
	State() models.RecordingState
}

// Deps are the collaborators of a Controller. Archive is optional.
type Deps struct {
	Store    *session.Store
	Gateway  Gateway
	Channel  Channel
	Recorder Recorder
	Archive  store.Archive
	Logger   zerolog.Logger
}

// Options tunes a Controller.
type Options struct {
	Endpoint          string // server base URL, also used to resolve relative audio URLs
	MinUtteranceBytes int
}

// Status is a snapshot of the press-to-talk affordance.
type Status struct {
	State      models.RecordingState `json:"state"`
	Recording  bool                  `json:"recording"`
	Processing bool                  `json:"processing"`
	Connected  bool                  `json:"connected"`
	PeerJoined bool                  `json:"peer_joined"`
	CanSend    bool                  `json:"can_send"`
	History    bool                  `json:"history_loaded"`
	Error      string                `json:"error,omitempty"`
}

// Controller is the coordination point of one chat screen.
type Controller struct {
	store    *session.Store
	gateway  Gateway
	channel  Channel
	recorder Recorder
	archive  store.Archive
	logger   zerolog.Logger
	opts     Options

	mu            sync.Mutex
	messages      []models.Message
	historyLoaded bool
	recording     bool
	processing    bool
	connected     bool
	errText       string
	active        bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup

	changes chan struct{}
}

// New creates an inactive controller.
func New(deps Deps, opts Options) *Controller {
	if opts.MinUtteranceBytes <= 0 {
		opts.MinUtteranceBytes = DefaultMinUtteranceBytes
	}
	return &Controller{
		store:    deps.Store,
		gateway:  deps.Gateway,
		channel:  deps.Channel,
		recorder: deps.Recorder,
		archive:  deps.Archive,
		logger:   deps.Logger.With().Str("component", "conversation").Logger(),
		opts:     opts,
		changes:  make(chan struct{}, 1),
	}
}

// Changes signals that the thread or status changed. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Activate connects the realtime channel, starts event handling and loads
// history. It fails with ErrNoSession when no session is set.
func (c *Controller) Activate(ctx context.Context) error {
	sess, ok := c.store.Get()
	if !ok {
		return ErrNoSession
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil
	}

	if err := c.channel.Connect(ctx, c.opts.Endpoint); err != nil {
		return err
	}
	events := c.channel.Events()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.active = true

	c.wg.Add(2)
	go c.loop(loopCtx, events)
	go c.loadHistory(loopCtx, sess)

	c.logger.Info().Str("session_id", sess.SessionID).Str("role", string(sess.UserRole)).Msg("conversation active")
	return nil
}

// Deactivate releases the recorder and disconnects the channel regardless
// of their state. It is safe to call repeatedly.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	cancel, wasActive := c.cancel, c.active
	c.cancel, c.active = nil, false
	c.recording, c.processing, c.connected = false, false, false
	c.mu.Unlock()

	c.recorder.Release()
	c.channel.Disconnect()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	if wasActive {
		c.logger.Info().Msg("conversation closed")
	}
}

func (c *Controller) loop(ctx context.Context, events <-chan realtime.Event) {
	defer c.wg.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev realtime.Event) {
	switch ev := ev.(type) {
	case realtime.ConnectionChanged:
		c.mu.Lock()
		c.connected = ev.Connected
		c.mu.Unlock()

		if ev.Connected {
			// the transport does not replay the join after a reconnect
			if sess, ok := c.store.Get(); ok {
				c.channel.JoinSession(sess.SessionID, sess.UserRole)
			}
		}

	case realtime.NewMessage:
		msg := models.Message{
			LocalID:        ids.NewLocalID(),
			ID:             ev.Message.ID,
			IsMine:         false,
			SenderRole:     ev.Message.SenderRole,
			OriginalText:   ev.Message.OriginalText,
			TranslatedText: ev.Message.TranslatedText,
			AudioURL:       ev.Message.AudioURL,
			Timestamp:      models.ParseTimestamp(ev.Message.Timestamp),
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		c.append(ctx, msg)
		metrics.MessagesReceived.Inc()

	case realtime.UserJoined:
		sess, ok := c.store.Update(func(s *models.Session) {
			s.OtherUserName = ev.User.UserName
			s.OtherUserLanguage = ev.User.UserLanguage
		})
		if ok {
			c.logger.Info().
				Str("user_name", sess.OtherUserName).
				Str("user_language", sess.OtherUserLanguage).
				Msg("other user joined")
		}

	case realtime.ConnectionError:
		if errors.Is(ev.Err, realtime.ErrReconnectFailed) {
			c.mu.Lock()
			c.errText = UserMessage(ev.Err)
			c.mu.Unlock()
		}
		c.logger.Error().Err(ev.Err).RawJSON("payload", rawOrNull(ev.Payload)).Msg("realtime error")
	}
	c.notify()
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

// append adds a message to the thread and archives it.
func (c *Controller) append(ctx context.Context, msg models.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.archiveMessages(ctx, msg)
}

func (c *Controller) archiveMessages(ctx context.Context, msgs ...models.Message) {
	if c.archive == nil || len(msgs) == 0 {
		return
	}
	sess, ok := c.store.Get()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	for _, m := range msgs {
		if err := c.archive.SaveMessage(ctx, models.NewTranscriptEntry(sess.SessionID, m)); err != nil {
			c.logger.Warn().Err(err).Msg("failed to archive message")
		}
	}
}

// loadHistory fetches the session's prior messages once. Messages that
// reached the thread before history arrived are kept after it, except
// those history already contains.
func (c *Controller) loadHistory(ctx context.Context, sess models.Session) {
	defer c.wg.Done()

	start := time.Now()
	resp, err := c.gateway.GetMessages(ctx, sess.SessionID)
	observeGateway("messages", start, err)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("error loading messages")
		}
		c.mu.Lock()
		c.historyLoaded = true
		c.mu.Unlock()
		return
	}

	history := make([]models.Message, 0, len(resp.Messages))
	for _, p := range resp.Messages {
		history = append(history, models.Message{
			LocalID:        ids.NewLocalID(),
			ID:             p.ID,
			IsMine:         p.SenderRole == sess.UserRole,
			SenderRole:     p.SenderRole,
			OriginalText:   p.OriginalText,
			TranslatedText: p.TranslatedText,
			AudioURL:       p.AudioURL,
			Timestamp:      models.ParseTimestamp(p.Timestamp),
		})
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})

	c.mu.Lock()
	c.messages = mergeHistory(history, c.messages)
	c.historyLoaded = true
	c.mu.Unlock()

	c.logger.Debug().Int("count", len(history)).Msg("history loaded")
	c.archiveMessages(ctx, history...)
	c.notify()
}

// mergeHistory places history ahead of early messages, dropping early
// messages whose content history already holds.
func mergeHistory(history, early []models.Message) []models.Message {
	seen := make(map[string]bool, len(history))
	for _, m := range history {
		seen[m.Fingerprint()] = true
	}
	merged := history
	for _, m := range early {
		if seen[m.Fingerprint()] {
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// PressStart begins a recording.
func (c *Controller) PressStart(ctx context.Context) error {
	sess, ok := c.store.Get()
	if !ok {
		return ErrNoSession
	}

	c.mu.Lock()
	switch {
	case c.processing:
		c.mu.Unlock()
		return ErrBusy
	case !sess.PeerJoined():
		c.mu.Unlock()
		return ErrPeerNotJoined
	}
	c.errText = ""
	c.recording = true
	c.mu.Unlock()
	c.notify()

	err := c.recorder.Start(ctx)
	if errors.Is(err, recorder.ErrAlreadyRecording) {
		c.logger.Debug().Msg("press ignored: already recording")
		return nil
	}
	if err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// PressEnd stops the recording and, if the utterance is long enough,
// sends it for translation. The appended message is returned.
func (c *Controller) PressEnd(ctx context.Context) (models.Message, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		metrics.UtterancesRejected.WithLabelValues("busy").Inc()
		return models.Message{}, ErrBusy
	}
	c.mu.Unlock()

	audio, err := c.recorder.Stop(ctx)

	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()

	if err != nil {
		c.fail(err)
		return models.Message{}, err
	}

	switch {
	case audio.Empty():
		metrics.UtterancesRejected.WithLabelValues("empty").Inc()
		c.fail(ErrNoAudio)
		return models.Message{}, ErrNoAudio
	case audio.Size() < c.opts.MinUtteranceBytes:
		metrics.UtterancesRejected.WithLabelValues("too_short").Inc()
		c.logger.Debug().Int("bytes", audio.Size()).Msg("utterance below threshold")
		c.fail(ErrTooShort)
		return models.Message{}, ErrTooShort
	}

	sess, ok := c.store.Get()
	if !ok {
		c.fail(ErrNoSession)
		return models.Message{}, ErrNoSession
	}
	if !sess.PeerJoined() {
		metrics.UtterancesRejected.WithLabelValues("peer_absent").Inc()
		c.fail(ErrPeerNotJoined)
		return models.Message{}, ErrPeerNotJoined
	}

	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		metrics.UtterancesRejected.WithLabelValues("busy").Inc()
		return models.Message{}, ErrBusy
	}
	c.processing = true
	c.mu.Unlock()
	c.notify()

	start := time.Now()
	resp, err := c.gateway.SendMessage(ctx, talkbridge.SendMessageRequest{
		SessionID:  sess.SessionID,
		UserRole:   sess.UserRole,
		Audio:      audio.Data,
		SourceLang: sess.MyLanguage,
		TargetLang: sess.OtherUserLanguage,
	})
	observeGateway("send", start, err)

	c.mu.Lock()
	c.processing = false
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("translation error")
		c.fail(err)
		return models.Message{}, err
	}

	msg := models.Message{
		LocalID:        ids.NewLocalID(),
		IsMine:         true,
		SenderRole:     sess.UserRole,
		OriginalText:   resp.Transcription,
		TranslatedText: resp.Translation,
		AudioURL:       resp.AudioURL,
		Timestamp:      time.Now(),
	}
	c.append(ctx, msg)
	metrics.UtterancesSent.Inc()
	c.notify()
	return msg, nil
}

// fail records err as the visible error.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.errText = UserMessage(err)
	c.recording = false
	c.mu.Unlock()
	c.notify()
}

// Play plays a message's audio to completion. Playing a message that is
// already playing is a no-op.
func (c *Controller) Play(ctx context.Context, localID string) error {
	c.mu.Lock()
	i := c.indexOf(localID)
	if i < 0 {
		c.mu.Unlock()
		return ErrUnknownMessage
	}
	msg := c.messages[i]
	if msg.AudioURL == "" {
		c.mu.Unlock()
		return ErrNoAudioURL
	}
	if msg.IsPlaying {
		c.mu.Unlock()
		return nil
	}
	c.messages[i].IsPlaying = true
	c.mu.Unlock()
	c.notify()

	err := c.recorder.Playback(ctx, c.resolve(msg.AudioURL))

	c.mu.Lock()
	if i := c.indexOf(localID); i >= 0 {
		c.messages[i].IsPlaying = false
	}
	if err != nil {
		c.errText = UserMessage(err)
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// indexOf must be called with c.mu held.
func (c *Controller) indexOf(localID string) int {
	for i := range c.messages {
		if c.messages[i].LocalID == localID {
			return i
		}
	}
	return -1
}

// resolve makes a relative audio URL absolute against the endpoint.
func (c *Controller) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || c.opts.Endpoint == "" {
		return ref
	}
	base, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// Messages returns a copy of the thread.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Session returns a copy of the active session.
func (c *Controller) Session() (models.Session, bool) {
	return c.store.Get()
}

// CanSend reports whether the press-to-talk affordance is enabled: the
// peer has joined and no translation is in flight.
func (c *Controller) CanSend() bool {
	sess, ok := c.store.Get()
	c.mu.Lock()
	defer c.mu.Unlock()
	return ok && sess.PeerJoined() && !c.processing
}

// Status returns a snapshot of the affordance state.
func (c *Controller) Status() Status {
	sess, ok := c.store.Get()
	peer := ok && sess.PeerJoined()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.recorder.State(),
		Recording:  c.recording,
		Processing: c.processing,
		Connected:  c.connected,
		PeerJoined: peer,
		CanSend:    peer && !c.processing,
		History:    c.historyLoaded,
		Error:      c.errText,
	}
}

func observeGateway(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case talkbridge.IsCommunication(err):
		outcome = "comm_error"
	case err != nil:
		outcome = "api_error"
	}
	metrics.GatewayRequests.WithLabelValues(op, outcome).Inc()
	metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Package gateway owns the streaming websocket session: handshake, watermark
// tracking, heartbeat liveness, and reconnect with resume.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/gotd/td/clock"

	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateReady        State = "ready"
	StateResuming     State = "resuming"
	StateDisconnected State = "disconnected"
)

// SignalKind names a lifecycle notification.
type SignalKind string

const (
	// SignalReady follows every Ready frame.
	SignalReady SignalKind = "ready"
	// SignalDisconnected follows every transport close.
	SignalDisconnected SignalKind = "disconnected"
	// SignalReconnecting precedes each reconnect wait.
	SignalReconnecting SignalKind = "reconnecting"
	// SignalResumeRequired follows a Resume frame; cached state may be stale.
	SignalResumeRequired SignalKind = "resume_required"
	// SignalTerminated is the last signal of a session run.
	SignalTerminated SignalKind = "terminated"
)

// Signal is a lifecycle notification delivered in frame order.
type Signal struct {
	Kind          SignalKind
	State         State
	Attempt       int
	LastMessageID string
	Identity      *wire.BotUser
	Err           error
	At            time.Time
}

// EventFrame is one named event in arrival order.
type EventFrame struct {
	Name       string
	Payload    json.RawMessage
	Sequence   string
	ReceivedAt time.Time
}

// Listener consumes the ordered stream. Calls never overlap.
type Listener interface {
	OnEvent(ctx context.Context, frame EventFrame) error
	OnSignal(ctx context.Context, signal Signal)
}

// run is one Connect..idle lifetime.
type run struct {
	cancel       context.CancelFunc
	consumerStop context.CancelFunc
	queue        *frameQueue
	runDone      chan struct{}
	consumerDone chan struct{}
	finishOnce   sync.Once
}

// transport is one dialed connection.
type transport struct {
	conn     Conn
	interval chan time.Duration

	mu    sync.Mutex
	cause error
}

// fail records why the transport was closed locally, then closes it.
func (t *transport) fail(err error) {
	t.mu.Lock()
	if t.cause == nil {
		t.cause = err
	}
	t.mu.Unlock()
	_ = t.conn.Close()
}

func (t *transport) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cause
}

// Session owns at most one transport at a time.
type Session struct {
	cfg      Config
	listener Listener
	dialer   Dialer
	clock    clock.Clock
	backoff  backoff.BackOff
	logger   *slog.Logger
	onError  func(ctx context.Context, scope string, err error)

	lifecycle sync.Mutex

	mu                sync.Mutex
	state             State
	lastMessageID     string
	readyAt           time.Time
	identity          *wire.BotUser
	attempts          int
	latency           time.Duration
	lastPingAt        time.Time
	lastPongAt        time.Time
	heartbeatInterval time.Duration
	current           *run
}

// New builds an idle session.
func New(cfg Config, listener Listener, opts ...Option) (*Session, error) {
	if listener == nil {
		return nil, fmt.Errorf("gateway: nil listener")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("gateway: max reconnect attempts must be >= 0")
	}

	logger := slog.Default()
	s := &Session{
		cfg:               cfg,
		listener:          listener,
		dialer:            WebsocketDialer{},
		clock:             clock.System,
		backoff:           defaultBackOff(),
		logger:            logger,
		state:             StateIdle,
		lastMessageID:     cfg.LastMessageID,
		heartbeatInterval: cfg.HeartbeatInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.onError == nil {
		s.onError = func(ctx context.Context, scope string, err error) {
			s.logger.ErrorContext(ctx, "gateway async error", "scope", scope, "error", err)
		}
	}

	return s, nil
}

// Connect starts the session from idle and returns without waiting for the
// handshake. Transport failures surface only as signals. The session outlives
// ctx cancellation; stop it with Disconnect.
//
// After a run ended on its own, Connect first waits until the frames the
// old run queued have been delivered, bounded by ctx. It must not be called
// from a Listener callback.
func (s *Session) Connect(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	state, previous := s.state, s.current
	s.mu.Unlock()
	if state != StateIdle {
		return guildsync.ErrAlreadyConnected
	}
	if previous != nil {
		// A self-terminated run may still be unwinding or delivering queued
		// frames; the new run's consumer must not overlap with it.
		<-previous.runDone
		select {
		case <-previous.consumerDone:
			previous.consumerStop()
		case <-ctx.Done():
			return fmt.Errorf("gateway: connect: previous run still draining: %w", ctx.Err())
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	consumerCtx, consumerStop := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		cancel:       cancel,
		consumerStop: consumerStop,
		queue:        newFrameQueue(),
		runDone:      make(chan struct{}),
		consumerDone: make(chan struct{}),
	}

	s.mu.Lock()
	s.current = r
	s.state = StateConnecting
	s.attempts = 0
	s.mu.Unlock()
	s.backoff.Reset()

	go s.consume(consumerCtx, r)
	go s.loop(runCtx, r)

	return nil
}

// Disconnect closes the transport and leaves the session idle. The watermark
// is kept for the next Connect. It waits for queued frames to be delivered
// until ctx ends, so it must not be called from a Listener callback.
func (s *Session) Disconnect(ctx context.Context) error {
	r, err := s.stopRun(ctx)
	if err != nil {
		return err
	}

	select {
	case <-r.consumerDone:
		r.consumerStop()
		return nil
	case <-ctx.Done():
		r.consumerStop()
		return fmt.Errorf("gateway: disconnect drain: %w", ctx.Err())
	}
}

// stopRun cancels the live run and waits for its transport to close.
func (s *Session) stopRun(ctx context.Context) (*run, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	state, r := s.state, s.current
	s.mu.Unlock()
	if state == StateIdle || r == nil {
		return nil, guildsync.ErrNotConnected
	}

	r.cancel()
	select {
	case <-r.runDone:
	case <-ctx.Done():
		r.consumerStop()
		return nil, fmt.Errorf("gateway: disconnect: %w", ctx.Err())
	}
	s.finish(r, nil)

	return r, nil
}

// loop dials, serves, and reconnects until ctx ends or the budget is spent.
func (s *Session) loop(ctx context.Context, r *run) {
	defer close(r.runDone)

	for {
		err := s.serve(ctx, r)
		if ctx.Err() != nil {
			return
		}

		s.setState(StateDisconnected)
		s.emit(r, Signal{Kind: SignalDisconnected, Err: err})
		s.logger.WarnContext(ctx, "gateway disconnected", "error", err)

		attempt, ok := s.nextAttempt()
		if !ok {
			s.finish(r, err)
			return
		}
		delay := s.backoff.NextBackOff()
		if delay == backoff.Stop {
			s.finish(r, err)
			return
		}

		s.setState(StateResuming)
		s.emit(r, Signal{Kind: SignalReconnecting, Attempt: attempt})
		s.logger.InfoContext(ctx, "gateway reconnecting", "attempt", attempt, "delay", delay)
		if !s.wait(ctx, delay) {
			return
		}
	}
}

// nextAttempt increments the attempt counter when reconnection is allowed.
func (s *Session) nextAttempt() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.reconnectEnabled() {
		return 0, false
	}
	if s.cfg.MaxReconnectAttempts > 0 && s.attempts >= s.cfg.MaxReconnectAttempts {
		return 0, false
	}
	s.attempts++

	return s.attempts, true
}

func (s *Session) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := s.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

// finish moves the run to idle exactly once and emits the terminal signal.
func (s *Session) finish(r *run, cause error) {
	r.finishOnce.Do(func() {
		s.mu.Lock()
		if s.current == r {
			s.state = StateIdle
		}
		s.mu.Unlock()

		s.emit(r, Signal{Kind: SignalTerminated, Err: cause})
		r.queue.close()
	})
}

// serve owns one transport from dial until close. It returns only after the
// heartbeat goroutine has exited and the connection is closed.
func (s *Session) serve(ctx context.Context, r *run) error {
	s.setState(StateConnecting)

	conn, err := s.dialer.Dial(ctx, s.cfg.URL, s.handshakeHeader())
	if err != nil {
		return err
	}

	t := &transport{conn: conn, interval: make(chan time.Duration, 1)}
	s.mu.Lock()
	s.lastPongAt = s.clock.Now()
	interval := s.heartbeatInterval
	s.mu.Unlock()
	conn.SetPongHandler(s.handlePong)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		s.heartbeat(heartbeatCtx, t, interval)
	}()
	stopClose := context.AfterFunc(ctx, func() {
		deadline := s.clock.Now().Add(defaultCloseWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	})

	err = s.read(ctx, r, t)

	stopClose()
	stopHeartbeat()
	<-heartbeatDone
	_ = conn.Close()

	return err
}

func (s *Session) read(ctx context.Context, r *run, t *transport) error {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if cause := t.failure(); cause != nil {
				return cause
			}
			return fmt.Errorf("gateway: read: %w", err)
		}
		if err := s.handleFrame(ctx, r, t, data); err != nil {
			return err
		}
	}
}

// handleFrame applies one inbound frame. The sequence token is recorded
// before anything else.
func (s *Session) handleFrame(ctx context.Context, r *run, t *transport, data []byte) error {
	var frame wire.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("gateway: decode frame: %w", err)
	}
	now := s.clock.Now()
	if frame.S != "" {
		s.mu.Lock()
		s.lastMessageID = frame.S
		s.mu.Unlock()
	}

	switch frame.Op {
	case wire.OpEvent:
		if frame.T == "" {
			s.logger.DebugContext(ctx, "gateway event frame without name", "sequence", frame.S)
			return nil
		}
		r.queue.push(queueItem{event: &EventFrame{
			Name:       frame.T,
			Payload:    frame.D,
			Sequence:   frame.S,
			ReceivedAt: now,
		}})
	case wire.OpReady:
		var ready wire.Ready
		if err := json.Unmarshal(frame.D, &ready); err != nil {
			return fmt.Errorf("gateway: decode ready: %w", err)
		}
		s.applyReady(t, ready, now)
		s.backoff.Reset()
		if err := s.ping(t.conn); err != nil {
			return err
		}
		identity := ready.User
		s.emit(r, Signal{Kind: SignalReady, Identity: &identity})
		s.logger.InfoContext(ctx, "gateway ready", "bot_id", ready.User.ID, "last_message_id", s.LastMessageID())
	case wire.OpResume:
		s.mu.Lock()
		s.lastMessageID = ""
		s.mu.Unlock()
		s.emit(r, Signal{Kind: SignalResumeRequired})
		s.logger.WarnContext(ctx, "gateway resume required")
	default:
		s.logger.DebugContext(ctx, "gateway unknown opcode", "op", int(frame.Op))
	}

	return nil
}

func (s *Session) applyReady(t *transport, ready wire.Ready, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateReady
	s.readyAt = now
	identity := ready.User
	s.identity = &identity
	s.attempts = 0
	if ready.LastMessageID != "" {
		s.lastMessageID = ready.LastMessageID
	}
	if ready.HeartbeatIntervalMS > 0 {
		interval := time.Duration(ready.HeartbeatIntervalMS) * time.Millisecond
		s.heartbeatInterval = interval
		select {
		case t.interval <- interval:
		default:
		}
	}
}

func (s *Session) handshakeHeader() http.Header {
	header := http.Header{}
	if s.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	header.Set("User-Agent", s.cfg.UserAgent)
	header.Set(LastMessageIDHeader, s.LastMessageID())

	return header
}

// emit stamps and queues a signal behind any pending frames.
func (s *Session) emit(r *run, signal Signal) {
	s.mu.Lock()
	signal.State = s.state
	signal.LastMessageID = s.lastMessageID
	s.mu.Unlock()
	signal.At = s.clock.Now()

	r.queue.push(queueItem{signal: &signal})
}

// consume delivers queued items to the listener strictly in order.
func (s *Session) consume(ctx context.Context, r *run) {
	defer close(r.consumerDone)

	for {
		item, ok := r.queue.pop(ctx)
		if !ok {
			return
		}
		switch {
		case item.event != nil:
			frame := *item.event
			if err := s.deliverEvent(ctx, frame); err != nil {
				s.onError(ctx, "gateway.dispatch", fmt.Errorf("%s: %w", frame.Name, err))
			}
		case item.signal != nil:
			if err := s.deliverSignal(ctx, *item.signal); err != nil {
				s.onError(ctx, "gateway.signal", err)
			}
		}
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// LastMessageID returns the watermark, or "" when none is held.
func (s *Session) LastMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastMessageID
}

// ReadyAt returns when the last Ready frame arrived.
func (s *Session) ReadyAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readyAt
}

// Identity returns the bot identity from the last Ready frame.
func (s *Session) Identity() (wire.BotUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return wire.BotUser{}, false
	}

	return *s.identity, true
}

// Latency returns the last ping round trip.
func (s *Session) Latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latency
}

// ReconnectAttempts returns the attempts made since the last Ready.
func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

// Heartbeat returns the last ping sent and pong received.
func (s *Session) Heartbeat() (sent, acked time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastPingAt, s.lastPongAt
}

// Backlog reports frames received but not yet delivered.
func (s *Session) Backlog() int {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return 0
	}

	return r.queue.len()
}

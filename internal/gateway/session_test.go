package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitTimeout = 2 * time.Second

type scriptFunc func(conn *websocket.Conn, handshake int)

type scriptedServer struct {
	server     *httptest.Server
	handshakes chan http.Header
	count      atomic.Int32
}

func newScriptedServer(t *testing.T, script scriptFunc) *scriptedServer {
	t.Helper()

	s := &scriptedServer{handshakes: make(chan http.Header, 64)}
	upgrader := websocket.Upgrader{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s.handshakes <- header
		script(conn, int(s.count.Add(1)))
	}))
	t.Cleanup(s.server.Close)

	return s
}

func (s *scriptedServer) url() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *scriptedServer) nextHandshake(t *testing.T) http.Header {
	t.Helper()

	select {
	case header := <-s.handshakes:
		return header
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for handshake")
		return nil
	}
}

// writeFrame ignores write failures; the client may already be gone.
func writeFrame(conn *websocket.Conn, op wire.Opcode, name string, data any, sequence string) {
	frame := wire.Frame{Op: op, T: name, S: sequence}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			panic(err)
		}
		frame.D = encoded
	}
	_ = conn.WriteJSON(frame)
}

func writeReady(conn *websocket.Conn, lastMessageID string) {
	writeFrame(conn, wire.OpReady, "", wire.Ready{
		LastMessageID: lastMessageID,
		User:          wire.BotUser{ID: "bot-user", BotID: "bot", Name: "sync"},
	}, "")
}

// drain reads until the client goes away, answering pings.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type recordingListener struct {
	events  chan EventFrame
	signals chan Signal
	onEvent func(EventFrame) error
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		events:  make(chan EventFrame, 1024),
		signals: make(chan Signal, 1024),
	}
}

func (l *recordingListener) OnEvent(_ context.Context, frame EventFrame) error {
	l.events <- frame
	if l.onEvent != nil {
		return l.onEvent(frame)
	}

	return nil
}

func (l *recordingListener) OnSignal(_ context.Context, signal Signal) {
	l.signals <- signal
}

func (l *recordingListener) waitSignal(t *testing.T, kind SignalKind) Signal {
	t.Helper()

	deadline := time.After(waitTimeout)
	for {
		select {
		case signal := <-l.signals:
			if signal.Kind == kind {
				return signal
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s signal", kind)
			return Signal{}
		}
	}
}

func newTestSession(t *testing.T, cfg Config, listener Listener, opts ...Option) *Session {
	t.Helper()

	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = time.Hour
	}
	opts = append([]Option{WithBackOff(&backoff.ZeroBackOff{})}, opts...)
	session, err := New(cfg, listener, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return session
}

func disconnect(t *testing.T, session *Session) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := session.Disconnect(ctx); err != nil && !errors.Is(err, guildsync.ErrNotConnected) {
		t.Fatalf("Disconnect() error = %v", err)
	}
}

func boolPtr(value bool) *bool {
	return &value
}

func TestReconnectReplaysWatermark(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, handshake int) {
		writeReady(conn, "")
		if handshake == 1 {
			writeFrame(conn, wire.OpEvent, "ChatMessageCreated", map[string]string{"serverId": "s1"}, "42")
			return
		}
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url(), Token: "token"}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	if got := server.nextHandshake(t).Get(LastMessageIDHeader); got != "" {
		t.Fatalf("first handshake last message id = %q, want empty", got)
	}
	listener.waitSignal(t, SignalReady)
	disconnected := listener.waitSignal(t, SignalDisconnected)
	if disconnected.LastMessageID != "42" {
		t.Fatalf("disconnected watermark = %q, want 42", disconnected.LastMessageID)
	}
	reconnecting := listener.waitSignal(t, SignalReconnecting)
	if reconnecting.Attempt != 1 || reconnecting.State != StateResuming {
		t.Fatalf("reconnecting signal = %+v, want attempt 1 in resuming", reconnecting)
	}

	if got := server.nextHandshake(t).Get(LastMessageIDHeader); got != "42" {
		t.Fatalf("reconnect handshake last message id = %q, want 42", got)
	}
	listener.waitSignal(t, SignalReady)
	if got := session.ReconnectAttempts(); got != 0 {
		t.Fatalf("ReconnectAttempts() = %d after ready, want 0", got)
	}
	if got := session.State(); got != StateReady {
		t.Fatalf("State() = %s, want ready", got)
	}

	disconnect(t, session)
	if got := session.State(); got != StateIdle {
		t.Fatalf("State() after disconnect = %s, want idle", got)
	}
	if got := session.LastMessageID(); got != "42" {
		t.Fatalf("LastMessageID() after disconnect = %q, want 42", got)
	}
}

func TestResumeClearsWatermark(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, handshake int) {
		writeReady(conn, "")
		if handshake == 1 {
			writeFrame(conn, wire.OpEvent, "ChatMessageCreated", map[string]string{}, "42")
			writeFrame(conn, wire.OpResume, "", nil, "")
			return
		}
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url()}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	server.nextHandshake(t)
	resume := listener.waitSignal(t, SignalResumeRequired)
	if resume.LastMessageID != "" {
		t.Fatalf("resume watermark = %q, want empty", resume.LastMessageID)
	}
	if got := server.nextHandshake(t).Get(LastMessageIDHeader); got != "" {
		t.Fatalf("handshake after resume last message id = %q, want empty", got)
	}
}

func TestConnectDisconnectContract(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url()}, listener)

	if err := session.Disconnect(context.Background()); !errors.Is(err, guildsync.ErrNotConnected) {
		t.Fatalf("Disconnect() before connect error = %v, want ErrNotConnected", err)
	}
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := session.Connect(context.Background()); !errors.Is(err, guildsync.ErrAlreadyConnected) {
		t.Fatalf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
	listener.waitSignal(t, SignalReady)
	if identity, ok := session.Identity(); !ok || identity.ID != "bot-user" {
		t.Fatalf("Identity() = %+v, %v", identity, ok)
	}
	if session.ReadyAt().IsZero() {
		t.Fatal("ReadyAt() is zero after ready")
	}

	disconnect(t, session)
	terminated := listener.waitSignal(t, SignalTerminated)
	if terminated.State != StateIdle {
		t.Fatalf("terminated state = %s, want idle", terminated.State)
	}
	if err := session.Disconnect(context.Background()); !errors.Is(err, guildsync.ErrNotConnected) {
		t.Fatalf("Disconnect() when idle error = %v, want ErrNotConnected", err)
	}

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect via Connect() error = %v", err)
	}
	listener.waitSignal(t, SignalReady)
	disconnect(t, session)
}

func TestEventsDeliveredInOrder(t *testing.T) {
	t.Parallel()

	const total = 100
	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
		for i := 1; i <= total; i++ {
			writeFrame(conn, wire.OpEvent, "ChatMessageUpdated", map[string]int{"n": i}, strconv.Itoa(i))
		}
		drain(conn)
	})
	listener := newRecordingListener()
	listener.onEvent = func(frame EventFrame) error {
		if frame.Sequence == "1" {
			time.Sleep(20 * time.Millisecond)
		}
		return nil
	}
	session := newTestSession(t, Config{URL: server.url()}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	for want := 1; want <= total; want++ {
		select {
		case frame := <-listener.events:
			if frame.Sequence != strconv.Itoa(want) || frame.Name != "ChatMessageUpdated" {
				t.Fatalf("frame %d = %+v", want, frame)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for frame %d", want)
		}
	}
	if got := session.LastMessageID(); got != strconv.Itoa(total) {
		t.Fatalf("LastMessageID() = %q, want %d", got, total)
	}
}

func TestReconnectBudgetExhausted(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(*websocket.Conn, int) {})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url(), MaxReconnectAttempts: 2}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	for i := 0; i < 3; i++ {
		server.nextHandshake(t)
	}
	terminated := listener.waitSignal(t, SignalTerminated)
	if terminated.State != StateIdle || terminated.Err == nil {
		t.Fatalf("terminated = %+v, want idle with cause", terminated)
	}
	if got := session.ReconnectAttempts(); got != 2 {
		t.Fatalf("ReconnectAttempts() = %d, want 2", got)
	}
	if got := server.count.Load(); got != 3 {
		t.Fatalf("handshakes = %d, want 3", got)
	}
}

func TestReconnectDisabledSettlesIdle(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url(), Reconnect: boolPtr(false)}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	listener.waitSignal(t, SignalDisconnected)
	listener.waitSignal(t, SignalTerminated)
	if got := session.State(); got != StateIdle {
		t.Fatalf("State() = %s, want idle", got)
	}
}

func TestReconnectAfterTerminationKeepsSingleConsumer(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, handshake int) {
		writeReady(conn, "")
		base := handshake * 10
		for offset := 0; offset < 3; offset++ {
			sequence := strconv.Itoa(base + offset)
			writeFrame(conn, wire.OpEvent, "ChatMessageCreated", map[string]string{}, sequence)
		}
	})

	var (
		mu      sync.Mutex
		order   []string
		active  atomic.Int32
		overlap atomic.Int32
	)
	listener := newRecordingListener()
	listener.onEvent = func(frame EventFrame) error {
		if active.Add(1) > 1 {
			overlap.Add(1)
		}
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, frame.Sequence)
		mu.Unlock()
		active.Add(-1)
		return nil
	}
	session := newTestSession(t, Config{URL: server.url(), Reconnect: boolPtr(false)}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	deadline := time.Now().Add(waitTimeout)
	for session.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("first run did not settle idle")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := session.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	want := []string{"10", "11", "12", "20", "21", "22"}
	for range want {
		select {
		case <-listener.events:
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for events")
		}
	}
	// The last OnEvent may still be recording.
	time.Sleep(50 * time.Millisecond)

	if got := overlap.Load(); got != 0 {
		t.Fatalf("overlapping OnEvent calls = %d, want 0", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("delivery order = %v, want %v", order, want)
	}
}

func TestMalformedFrameDisconnects(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url(), Reconnect: boolPtr(false)}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	disconnected := listener.waitSignal(t, SignalDisconnected)
	if disconnected.Err == nil || !strings.Contains(disconnected.Err.Error(), "decode frame") {
		t.Fatalf("disconnect cause = %v, want decode failure", disconnected.Err)
	}
}

func TestHeartbeatTimeoutClosesTransport(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := newScriptedServer(t, func(*websocket.Conn, int) {
		// Never read, so pings are never answered.
		<-release
	})
	t.Cleanup(func() { close(release) })

	listener := newRecordingListener()
	session := newTestSession(t, Config{
		URL:               server.url(),
		Reconnect:         boolPtr(false),
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  60 * time.Millisecond,
	}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	disconnected := listener.waitSignal(t, SignalDisconnected)
	if !errors.Is(disconnected.Err, ErrHeartbeatTimeout) {
		t.Fatalf("disconnect cause = %v, want ErrHeartbeatTimeout", disconnected.Err)
	}
}

func TestPongRecordsLatency(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{URL: server.url()}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	listener.waitSignal(t, SignalReady)
	deadline := time.Now().Add(waitTimeout)
	for session.Latency() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Latency() stayed zero after ready ping")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sent, acked := session.Heartbeat()
	if sent.IsZero() || acked.Before(sent) {
		t.Fatalf("Heartbeat() = %v, %v", sent, acked)
	}
}

func TestHandshakeHeaders(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
		drain(conn)
	})
	listener := newRecordingListener()
	session := newTestSession(t, Config{
		URL:           server.url(),
		Token:         "secret",
		UserAgent:     "test-agent",
		LastMessageID: "seed",
	}, listener)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	header := server.nextHandshake(t)
	if got := header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := header.Get("User-Agent"); got != "test-agent" {
		t.Fatalf("User-Agent = %q", got)
	}
	if got := header.Get(LastMessageIDHeader); got != "seed" {
		t.Fatalf("%s = %q, want seed", LastMessageIDHeader, got)
	}
}

func TestListenerPanicIsReported(t *testing.T) {
	t.Parallel()

	server := newScriptedServer(t, func(conn *websocket.Conn, _ int) {
		writeReady(conn, "")
		writeFrame(conn, wire.OpEvent, "DocCreated", map[string]string{}, "1")
		writeFrame(conn, wire.OpEvent, "DocUpdated", map[string]string{}, "2")
		drain(conn)
	})

	var (
		mu     sync.Mutex
		scopes []string
	)
	reported := make(chan struct{}, 1)
	listener := newRecordingListener()
	listener.onEvent = func(frame EventFrame) error {
		if frame.Name == "DocCreated" {
			panic("boom")
		}
		return nil
	}
	session := newTestSession(t, Config{URL: server.url()}, listener, WithErrorHandler(func(_ context.Context, scope string, err error) {
		mu.Lock()
		scopes = append(scopes, scope)
		if !errors.Is(err, ErrListenerPanic) {
			scopes = append(scopes, "unexpected:"+err.Error())
		}
		mu.Unlock()
		select {
		case reported <- struct{}{}:
		default:
		}
	}))

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer disconnect(t, session)

	for _, want := range []string{"DocCreated", "DocUpdated"} {
		select {
		case frame := <-listener.events:
			if frame.Name != want {
				t.Fatalf("frame = %s, want %s", frame.Name, want)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
	select {
	case <-reported:
	case <-time.After(waitTimeout):
		t.Fatal("panic was not reported")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(scopes) != 1 || scopes[0] != "gateway.dispatch" {
		t.Fatalf("scopes = %v, want gateway.dispatch", scopes)
	}
}

func TestFrameQueueDrainsAfterClose(t *testing.T) {
	t.Parallel()

	queue := newFrameQueue()
	for i := 0; i < 3; i++ {
		queue.push(queueItem{event: &EventFrame{Sequence: strconv.Itoa(i)}})
	}
	queue.close()
	if queue.push(queueItem{event: &EventFrame{}}) {
		t.Fatal("push after close = true, want false")
	}

	for i := 0; i < 3; i++ {
		item, ok := queue.pop(context.Background())
		if !ok || item.event.Sequence != strconv.Itoa(i) {
			t.Fatalf("pop %d = %+v, %v", i, item, ok)
		}
	}
	if _, ok := queue.pop(context.Background()); ok {
		t.Fatal("pop on drained closed queue = true, want false")
	}
}

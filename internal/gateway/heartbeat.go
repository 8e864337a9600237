package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// ErrHeartbeatTimeout is the disconnect cause when pongs stop arriving.
var ErrHeartbeatTimeout = errors.New("gateway: heartbeat timeout")

// heartbeat pings on every tick and closes the transport when the last pong
// is older than the timeout.
func (s *Session) heartbeat(ctx context.Context, t *transport, interval time.Duration) {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()
	timeout := s.heartbeatTimeout(interval)

	for {
		select {
		case <-ctx.Done():
			return
		case next := <-t.interval:
			ticker.Reset(next)
			timeout = s.heartbeatTimeout(next)
		case <-ticker.C():
			if since := s.sincePong(); since > timeout {
				s.logger.WarnContext(ctx, "gateway heartbeat timeout", "since_pong", since, "timeout", timeout)
				t.fail(fmt.Errorf("%w after %s", ErrHeartbeatTimeout, since))
				return
			}
			if err := s.ping(t.conn); err != nil {
				t.fail(err)
				return
			}
		}
	}
}

func (s *Session) heartbeatTimeout(interval time.Duration) time.Duration {
	if s.cfg.HeartbeatTimeout > 0 {
		return s.cfg.HeartbeatTimeout
	}

	return 2 * interval
}

func (s *Session) sincePong() time.Duration {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastPongAt)
}

// ping sends a websocket ping carrying the send time.
func (s *Session) ping(conn Conn) error {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastPingAt = now
	s.mu.Unlock()

	payload := []byte(strconv.FormatInt(now.UnixNano(), 10))
	if err := conn.WriteControl(websocket.PingMessage, payload, now.Add(defaultWriteWait)); err != nil {
		return fmt.Errorf("gateway: ping: %w", err)
	}

	return nil
}

// handlePong records liveness and the round trip of the echoed ping.
func (s *Session) handlePong(appData string) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPongAt = now
	if sentNanos, err := strconv.ParseInt(appData, 10, 64); err == nil {
		if rtt := now.Sub(time.Unix(0, sentNanos)); rtt >= 0 {
			s.latency = rtt
		}
	}

	return nil
}

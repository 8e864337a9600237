package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrListenerPanic marks a listener callback that panicked. The consumer keeps
// running and moves on to the next queued frame.
var ErrListenerPanic = errors.New("gateway: listener panicked")

func (s *Session) deliverEvent(ctx context.Context, frame EventFrame) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: event %s: %v", ErrListenerPanic, frame.Name, recovered)
		}
	}()

	return s.listener.OnEvent(ctx, frame)
}

func (s *Session) deliverSignal(ctx context.Context, signal Signal) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: signal %s: %v", ErrListenerPanic, signal.Kind, recovered)
		}
	}()

	s.listener.OnSignal(ctx, signal)
	return nil
}

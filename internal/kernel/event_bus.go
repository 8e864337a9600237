package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"guildsync/pkg/guildsync"
)

// ErrBusClosed indicates a publish or subscribe after Close.
var ErrBusClosed = errors.New("kernel: event bus closed")

// EventBus is the asynchronous fan-out of normalized events to subscribers.
type EventBus struct {
	cfg config

	mu            sync.RWMutex
	nextID        int64
	closed        bool
	subscriptions []*busSubscription
}

var _ guildsync.EventBus = (*EventBus)(nil)

// NewEventBus creates an event bus with bounded per-subscription queues.
func NewEventBus(opts ...Option) *EventBus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &EventBus{cfg: cfg}
}

// Publish enqueues event on every matching subscription in subscription order.
// Drops and closed subscriptions are reported through the async error hook;
// other enqueue failures are returned.
func (b *EventBus) Publish(ctx context.Context, event *guildsync.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	subs, err := b.snapshotSubscriptions()
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.Kind, err)
	}

	var publishErrs []error
	for _, sub := range subs {
		if !sub.spec.Filter.Matches(event) {
			continue
		}
		if err := sub.enqueue(ctx, event); err != nil {
			if errors.Is(err, guildsync.ErrEventDropped) || errors.Is(err, guildsync.ErrSubscriptionClosed) {
				b.reportAsyncError(ctx, sub.spec.Name, err)
				continue
			}
			publishErrs = append(publishErrs, err)
		}
	}

	if len(publishErrs) > 0 {
		return fmt.Errorf("publish event %s: %w", event.Kind, errors.Join(publishErrs...))
	}

	return nil
}

// Subscribe registers a handler. Its workers start immediately.
func (b *EventBus) Subscribe(
	ctx context.Context,
	spec guildsync.SubscriptionSpec,
	handler guildsync.EventHandler,
) (guildsync.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, err)
	}
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: %w: nil handler", spec.Name, guildsync.ErrInvalidSubscription)
	}

	subID := atomic.AddInt64(&b.nextID, 1)
	spec, err := b.normalizeSpec(spec, subID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, ErrBusClosed)
	}
	sub := newBusSubscription(subID, spec, handler, b)
	b.subscriptions = append(b.subscriptions, sub)

	return sub, nil
}

// Close stops every subscription after its queued events are handled, or
// aborts handlers when ctx ends first.
func (b *EventBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()

	var closeErrs []error
	for _, sub := range subs {
		if err := sub.shutdown(ctx); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}

	if len(closeErrs) > 0 {
		return fmt.Errorf("close event bus: %w", errors.Join(closeErrs...))
	}

	return nil
}

// Len reports the number of active subscriptions.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscriptions)
}

// snapshotSubscriptions returns a stable copy for lock-free fan-out.
func (b *EventBus) snapshotSubscriptions() ([]*busSubscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	return append([]*busSubscription(nil), b.subscriptions...), nil
}

// normalizeSpec applies bus defaults to omitted fields.
func (b *EventBus) normalizeSpec(spec guildsync.SubscriptionSpec, subID int64) (guildsync.SubscriptionSpec, error) {
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("subscription-%d", subID)
	}
	if spec.Buffer <= 0 {
		spec.Buffer = b.cfg.buffer
	}
	if spec.Workers <= 0 {
		spec.Workers = b.cfg.workers
	}
	if spec.HandlerTimeout <= 0 {
		spec.HandlerTimeout = b.cfg.handlerTimeout
	}
	if spec.Backpressure == "" {
		spec.Backpressure = b.cfg.backpressure
	}
	if !spec.Backpressure.Valid() {
		return spec, fmt.Errorf("subscribe %s: %w: backpressure %q", spec.Name, guildsync.ErrInvalidSubscription, spec.Backpressure)
	}
	spec.Filter = cloneInterestSet(spec.Filter)

	return spec, nil
}

// unsubscribe removes and shuts down a subscription by id.
func (b *EventBus) unsubscribe(ctx context.Context, subID int64) error {
	b.mu.Lock()
	var sub *busSubscription
	for idx, candidate := range b.subscriptions {
		if candidate.id == subID {
			sub = candidate
			b.subscriptions = append(b.subscriptions[:idx:idx], b.subscriptions[idx+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.shutdown(ctx); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", sub.spec.Name, err)
	}

	return nil
}

func (b *EventBus) reportAsyncError(ctx context.Context, scope string, err error) {
	if b.cfg.onAsyncError != nil {
		b.cfg.onAsyncError(ctx, scope, err)
	}
}

// cloneInterestSet copies owned slices so caller mutation does not affect matching.
func cloneInterestSet(interest guildsync.InterestSet) guildsync.InterestSet {
	cloned := interest
	if len(interest.Kinds) > 0 {
		cloned.Kinds = append([]guildsync.EventKind(nil), interest.Kinds...)
	}
	if len(interest.ServerIDs) > 0 {
		cloned.ServerIDs = append([]string(nil), interest.ServerIDs...)
	}
	if len(interest.ChannelIDs) > 0 {
		cloned.ChannelIDs = append([]string(nil), interest.ChannelIDs...)
	}

	return cloned
}

// busSubscription owns the queue and workers of one subscriber. Closing
// stops intake first; workers then drain what is queued.
type busSubscription struct {
	id       int64
	spec     guildsync.SubscriptionSpec
	handler  guildsync.EventHandler
	queue    chan *guildsync.Event
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	once     sync.Once
	bus      *EventBus
}

func newBusSubscription(
	subID int64,
	spec guildsync.SubscriptionSpec,
	handler guildsync.EventHandler,
	bus *EventBus,
) *busSubscription {
	subCtx, cancel := context.WithCancel(context.Background())
	sub := &busSubscription{
		id:       subID,
		spec:     spec,
		handler:  handler,
		queue:    make(chan *guildsync.Event, spec.Buffer),
		ctx:      subCtx,
		cancel:   cancel,
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		bus:      bus,
	}

	sub.startWorkers()

	return sub
}

// Name returns the subscription name.
func (s *busSubscription) Name() string {
	return s.spec.Name
}

// Close unregisters this subscription from its bus.
func (s *busSubscription) Close(ctx context.Context) error {
	return s.bus.unsubscribe(ctx, s.id)
}

// enqueue applies the configured backpressure policy.
func (s *busSubscription) enqueue(ctx context.Context, event *guildsync.Event) error {
	if s.closed.Load() {
		return fmt.Errorf("enqueue %s: %w", s.spec.Name, guildsync.ErrSubscriptionClosed)
	}

	switch s.spec.Backpressure {
	case guildsync.BackpressureDropNewest:
		return s.enqueueDropNewest(event)
	case guildsync.BackpressureDropOldest:
		return s.enqueueDropOldest(event)
	case guildsync.BackpressureBlock:
		return s.enqueueBlock(ctx, event)
	default:
		return fmt.Errorf("enqueue %s: %w", s.spec.Name, guildsync.ErrInvalidSubscription)
	}
}

func (s *busSubscription) enqueueDropNewest(event *guildsync.Event) error {
	select {
	case s.queue <- event:
		return nil
	default:
		return fmt.Errorf("enqueue %s event %s: %w", s.spec.Name, event.Kind, guildsync.ErrEventDropped)
	}
}

// enqueueDropOldest evicts one queued event before enqueueing the new one.
func (s *busSubscription) enqueueDropOldest(event *guildsync.Event) error {
	select {
	case s.queue <- event:
		return nil
	default:
	}

	var evicted *guildsync.Event
	select {
	case evicted = <-s.queue:
	default:
	}

	select {
	case s.queue <- event:
		if evicted != nil {
			return fmt.Errorf("enqueue %s evicted %s: %w", s.spec.Name, evicted.Kind, guildsync.ErrEventDropped)
		}
		return nil
	default:
		return fmt.Errorf("enqueue %s event %s: %w", s.spec.Name, event.Kind, guildsync.ErrEventDropped)
	}
}

// enqueueBlock waits for capacity, caller cancellation, or subscription close.
func (s *busSubscription) enqueueBlock(ctx context.Context, event *guildsync.Event) error {
	select {
	case s.queue <- event:
		return nil
	case <-s.stopping:
		return fmt.Errorf("enqueue %s: %w", s.spec.Name, guildsync.ErrSubscriptionClosed)
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", s.spec.Name, ctx.Err())
	}
}

// startWorkers launches workers and closes done after all of them exit.
func (s *busSubscription) startWorkers() {
	workerWG := &sync.WaitGroup{}
	for idx := 0; idx < s.spec.Workers; idx++ {
		workerID := idx
		workerWG.Add(1)
		go s.runWorker(workerWG, workerID)
	}

	go func() {
		workerWG.Wait()
		close(s.done)
	}()
}

// runWorker handles queued events until close, then drains the queue.
func (s *busSubscription) runWorker(workerWG *sync.WaitGroup, workerID int) {
	defer workerWG.Done()

	for {
		select {
		case event := <-s.queue:
			s.deliver(workerID, event)
		case <-s.stopping:
			s.drain(workerID)
			return
		}
	}
}

func (s *busSubscription) drain(workerID int) {
	for s.ctx.Err() == nil {
		select {
		case event := <-s.queue:
			s.deliver(workerID, event)
		default:
			return
		}
	}
}

func (s *busSubscription) deliver(workerID int, event *guildsync.Event) {
	if err := s.handleEvent(s.ctx, workerID, event); err != nil {
		s.bus.reportAsyncError(s.ctx, s.spec.Name, err)
	}
}

// handleEvent runs one handler call with the timeout and panic recovery.
func (s *busSubscription) handleEvent(ctx context.Context, workerID int, event *guildsync.Event) error {
	handlerCtx := ctx
	cancel := func() {}
	if s.spec.HandlerTimeout > 0 {
		handlerCtx, cancel = context.WithTimeout(ctx, s.spec.HandlerTimeout)
	}
	defer cancel()

	scope := fmt.Sprintf("subscription %s worker %d", s.spec.Name, workerID)
	if err := runSafely(scope, func() error {
		return s.handler(handlerCtx, event)
	}); err != nil {
		return fmt.Errorf("handle event %s: %w", event.Kind, err)
	}

	return nil
}

// signalClose stops intake exactly once.
func (s *busSubscription) signalClose() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.stopping)
	})
}

// shutdown waits for the drain, or cancels in-flight handlers and returns
// when ctx ends.
func (s *busSubscription) shutdown(ctx context.Context) error {
	s.signalClose()

	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("shutdown subscription %s: %w", s.spec.Name, ctx.Err())
	}
}

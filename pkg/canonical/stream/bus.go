package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	events "github.com/docker/go-events"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// listenBuffer bounds the channel between the broadcaster and one
// listen loop.
const listenBuffer = 64

// Bus is an in-process event stream: an Emitter whose envelopes fan
// out to every attached sink and every active listen loop. Each sink
// gets its own queue so a slow sink never blocks Emit.
type Bus struct {
	sequencer   *Sequencer
	broadcaster *events.Broadcaster

	mu     sync.Mutex
	queues map[events.Sink]*events.Queue
	closed bool
}

// NewBus returns an empty bus stamping envelopes with the given clock.
func NewBus(clk clock.Clock) *Bus {
	return &Bus{
		sequencer:   NewSequencer(clk),
		broadcaster: events.NewBroadcaster(),
		queues:      map[events.Sink]*events.Queue{},
	}
}

// Emit stamps the events and writes them to every attached sink in
// order.
func (b *Bus) Emit(ctx context.Context, items ...*canonical.Event) error {
	for _, event := range items {
		if err := event.Validate(); err != nil {
			return err
		}
		envelope := b.sequencer.Stamp(event)
		if err := b.broadcaster.Write(envelope); err != nil {
			return errdefs.Newf(errdefs.ErrUnavailable, "emit %s %s: %w", event.EventType, event.Identifier, err)
		}
		xlog.C(ctx).Debugf("stream: emitted %s %s seq %s/%d",
			event.EventType, event.Identifier, envelope.Shard, envelope.SequenceNumber)
	}
	return nil
}

// Attach subscribes the sink behind its own queue.
func (b *Bus) Attach(sink events.Sink) error {
	queue := events.NewQueue(sink)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errdefs.Newf(errdefs.ErrUnavailable, "bus is closed")
	}
	b.queues[sink] = queue
	return b.broadcaster.Add(queue)
}

// AttachReliable subscribes the sink behind a queue and a retrying
// wrapper: a failing write retries with the given backoff, and the
// circuit stays open after threshold consecutive failures until a
// write succeeds again.
func (b *Bus) AttachReliable(sink events.Sink, threshold int, backoff time.Duration) error {
	retrying := events.NewRetryingSink(sink, events.NewBreaker(threshold, backoff))
	queue := events.NewQueue(retrying)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errdefs.Newf(errdefs.ErrUnavailable, "bus is closed")
	}
	b.queues[sink] = queue
	return b.broadcaster.Add(queue)
}

// Detach unsubscribes a sink attached with Attach or AttachReliable
// and closes its queue.
func (b *Bus) Detach(sink events.Sink) error {
	b.mu.Lock()
	queue, ok := b.queues[sink]
	delete(b.queues, sink)
	b.mu.Unlock()
	if !ok {
		return errdefs.Newf(errdefs.ErrNotFound, "sink is not attached")
	}
	if err := b.broadcaster.Remove(queue); err != nil {
		return err
	}
	return queue.Close()
}

// Subscribe attaches a fresh channel and returns a listener over it.
// The channel starts receiving immediately, so no envelope emitted
// after Subscribe returns is missed. The subscription detaches when
// its Listen loop returns.
func (b *Bus) Subscribe() (Listener, error) {
	channel := events.NewChannel(listenBuffer)
	if err := b.broadcaster.Add(channel); err != nil {
		return nil, errdefs.Newf(errdefs.ErrUnavailable, "subscribe: %w", err)
	}
	return &subscription{bus: b, channel: channel}, nil
}

// Listen subscribes a fresh channel and invokes the handler for every
// envelope until the context is canceled or the handler fails.
func (b *Bus) Listen(ctx context.Context, handler Handler) error {
	listener, err := b.Subscribe()
	if err != nil {
		return err
	}
	return listener.Listen(ctx, handler)
}

// subscription is one attached listen channel.
type subscription struct {
	bus     *Bus
	channel *events.Channel
}

// Listen drains the subscription until the context is canceled or the
// handler fails, then detaches the channel. A subscription listens
// once.
func (s *subscription) Listen(ctx context.Context, handler Handler) error {
	defer func() {
		if err := s.bus.broadcaster.Remove(s.channel); err != nil {
			xlog.C(ctx).Warnf("stream: remove listen channel: %v", err)
		}
		if err := s.channel.Close(); err != nil && !errors.Is(err, events.ErrSinkClosed) {
			xlog.C(ctx).Warnf("stream: close listen channel: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return errdefs.NewE(errdefs.ErrCanceled, ctx.Err())
		case raw, ok := <-s.channel.C:
			if !ok {
				return nil
			}
			envelope, ok := raw.(Envelope)
			if !ok {
				xlog.C(ctx).Warnf("stream: dropping foreign event %T", raw)
				continue
			}
			if err := handler(ctx, envelope); err != nil {
				return err
			}
		}
	}
}

// Sequencer exposes the bus's sequencer so producers can inspect shard
// positions.
func (b *Bus) Sequencer() *Sequencer { return b.sequencer }

// Close shuts the broadcaster and every attached queue down, flushing
// queued events first.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	queues := make([]*events.Queue, 0, len(b.queues))
	for _, queue := range b.queues {
		queues = append(queues, queue)
	}
	b.queues = map[events.Sink]*events.Queue{}
	b.mu.Unlock()

	err := b.broadcaster.Close()
	for _, queue := range queues {
		if closeErr := queue.Close(); closeErr != nil && !errors.Is(closeErr, events.ErrSinkClosed) {
			err = errors.Join(err, closeErr)
		}
	}
	return err
}

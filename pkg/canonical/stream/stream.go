// Package stream carries announcement events between register roles: a
// primary emits every applied event, replicants and observers listen.
// The bus fans out over docker/go-events sinks so that slow or flaky
// consumers cannot stall the producer.
package stream

import (
	"context"
	"time"

	"github.com/arxiv/canonical-go/pkg/canonical"
)

// Envelope wraps a full event for transport. Sequence numbers are
// per-shard and strictly increasing, so a consumer can detect gaps and
// replay from its last acknowledged position.
type Envelope struct {
	// SequenceNumber is the position of this event within its shard.
	SequenceNumber uint64 `json:"sequence_number"`
	// PreviousSequenceNumber is the position of the shard's previous
	// event, zero for the first.
	PreviousSequenceNumber uint64 `json:"previous_sequence_number"`
	// Shard names the listing shard the event belongs to.
	Shard string `json:"shard"`
	// EmittedAt is the instant the envelope was stamped.
	EmittedAt time.Time `json:"emitted_at"`
	// Event is the full announcement event, version state included.
	Event *canonical.Event `json:"event"`
}

// Emitter publishes announcement events to the stream.
type Emitter interface {
	// Emit stamps and publishes the events in order.
	Emit(ctx context.Context, events ...*canonical.Event) error
}

// Handler consumes one envelope. A non-nil error stops the listen loop
// and surfaces to the listener's caller.
type Handler func(ctx context.Context, envelope Envelope) error

// Listener consumes the stream.
type Listener interface {
	// Listen blocks, invoking the handler for every envelope until the
	// context is canceled or the handler fails.
	Listen(ctx context.Context, handler Handler) error
}

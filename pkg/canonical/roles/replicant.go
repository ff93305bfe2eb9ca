package roles

import (
	"context"
	"errors"
	"sync"

	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/stream"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// Replicant mirrors a primary: it consumes the stream and applies
// every event to its own register. Because the record is deterministic,
// a caught-up replicant's manifests are byte-identical to the
// primary's.
type Replicant struct {
	Reader
	register *register.Register
	listener stream.Listener

	mu        sync.Mutex
	positions map[string]uint64
}

// NewReplicant wraps a register fed from the listener.
func NewReplicant(reg *register.Register, listener stream.Listener) *Replicant {
	return &Replicant{
		Reader:    reg,
		register:  reg,
		listener:  listener,
		positions: map[string]uint64{},
	}
}

// Run consumes the stream until the context is canceled. Events the
// register has already seen are acknowledged and skipped, so replaying
// an overlapping backlog is safe.
func (r *Replicant) Run(ctx context.Context) error {
	return r.listener.Listen(ctx, r.apply)
}

// Position returns the sequence number of the last envelope applied in
// the shard.
func (r *Replicant) Position(shard string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positions[shard]
}

func (r *Replicant) apply(ctx context.Context, envelope stream.Envelope) error {
	if last := r.Position(envelope.Shard); envelope.PreviousSequenceNumber > last {
		xlog.C(ctx).Warnf("replicant: gap in shard %s: have %d, envelope follows %d",
			envelope.Shard, last, envelope.PreviousSequenceNumber)
	}
	err := r.register.AddEvents(ctx, envelope.Event)
	switch {
	case errors.Is(err, register.ErrConsistency):
		xlog.C(ctx).Debugf("replicant: skipping replayed event %s %s",
			envelope.Event.EventType, envelope.Event.Identifier)
	case err != nil:
		return err
	}

	r.mu.Lock()
	if envelope.SequenceNumber > r.positions[envelope.Shard] {
		r.positions[envelope.Shard] = envelope.SequenceNumber
	}
	r.mu.Unlock()
	return nil
}

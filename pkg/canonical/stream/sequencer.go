package stream

import (
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/arxiv/canonical-go/pkg/canonical"
)

// Sequencer stamps events with per-shard sequence numbers. Numbers
// start at 1 and never repeat within a shard for the lifetime of the
// sequencer.
type Sequencer struct {
	clock clock.Clock

	mu   sync.Mutex
	last map[string]uint64
}

// NewSequencer returns a sequencer on the given clock. A nil clock
// falls back to the wall clock.
func NewSequencer(clk clock.Clock) *Sequencer {
	if clk == nil {
		clk = clock.New()
	}
	return &Sequencer{clock: clk, last: map[string]uint64{}}
}

// Stamp assigns the event the next sequence number of its shard.
func (s *Sequencer) Stamp(event *canonical.Event) Envelope {
	shard := event.ListingShard()

	s.mu.Lock()
	previous := s.last[shard]
	next := previous + 1
	s.last[shard] = next
	s.mu.Unlock()

	return Envelope{
		SequenceNumber:         next,
		PreviousSequenceNumber: previous,
		Shard:                  shard,
		EmittedAt:              s.clock.Now().UTC(),
		Event:                  event,
	}
}

// Position returns the sequence number last assigned in the shard.
func (s *Sequencer) Position(shard string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[shard]
}

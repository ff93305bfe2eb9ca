package roles

import (
	"context"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/stream"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// Primary is the single writing node of a deployment: it applies
// events to its register and emits the applied state onto the stream
// for replicants and observers.
type Primary struct {
	Reader
	register *register.Register
	emitter  stream.Emitter
}

// NewPrimary wraps the register. A nil emitter makes a silent primary
// that only writes.
func NewPrimary(reg *register.Register, emitter stream.Emitter) *Primary {
	return &Primary{Reader: reg, register: reg, emitter: emitter}
}

// AddEvents applies the events, then emits each one re-wrapped around
// its applied version state, canonical refs included, so that a
// consumer can replicate without reaching the primary's staging
// sources. The record write is authoritative: an emit failure is
// logged, not rolled back.
func (p *Primary) AddEvents(ctx context.Context, events ...*canonical.Event) error {
	if err := p.register.AddEvents(ctx, events...); err != nil {
		return err
	}
	if p.emitter == nil {
		return nil
	}
	applied := make([]*canonical.Event, 0, len(events))
	for _, event := range events {
		summary, err := event.Summary()
		if err != nil {
			return err
		}
		version, err := p.register.LoadVersion(ctx, event.Identifier)
		if err != nil {
			return err
		}
		applied = append(applied, summary.WithVersion(version))
	}
	if err := p.emitter.Emit(ctx, applied...); err != nil {
		xlog.C(ctx).Warnf("primary: emit %d events: %v", len(applied), err)
	}
	return nil
}

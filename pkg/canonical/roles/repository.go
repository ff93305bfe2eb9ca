package roles

import (
	"context"

	"github.com/arxiv/canonical-go/pkg/canonical/stream"
)

// Repository is a read-only node: it embeds only the Reader surface,
// so there is no way to write through it.
type Repository struct {
	Reader
}

// NewRepository wraps any reader, typically a register over a local or
// remote record.
func NewRepository(reader Reader) *Repository {
	return &Repository{Reader: reader}
}

// Observer consumes the stream without keeping a record, for metrics,
// notifications or debugging taps.
type Observer struct {
	listener stream.Listener
}

// NewObserver wraps a listener.
func NewObserver(listener stream.Listener) *Observer {
	return &Observer{listener: listener}
}

// Run invokes the handler for every envelope until the context is
// canceled or the handler fails.
func (o *Observer) Run(ctx context.Context, handler stream.Handler) error {
	return o.listener.Listen(ctx, handler)
}

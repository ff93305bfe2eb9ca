package options

import (
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/canonical/stream"
)

// StreamFlagCategory is the category of the stream flags.
const StreamFlagCategory = "[Stream]"

const (
	// DefaultRetryThreshold is the failure count after which a webhook
	// sink's circuit breaker opens.
	DefaultRetryThreshold = 10

	// DefaultRetryBackoff is the pause before a broken webhook sink is
	// retried.
	DefaultRetryBackoff = 5 * time.Second
)

// NewStreamOptions returns a *StreamOptions with default values.
func NewStreamOptions() *StreamOptions {
	return &StreamOptions{
		RetryThreshold: DefaultRetryThreshold,
		RetryBackoff:   DefaultRetryBackoff,
	}
}

// StreamOptions configure where announcement events are published.
type StreamOptions struct {
	// Journal is the JSONL journal file path. Empty disables the journal.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Webhooks are endpoints every envelope is POSTed to.
	Webhooks []string `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`

	// RetryThreshold is the webhook failure count before backing off.
	RetryThreshold int64 `json:"retry_threshold,omitempty" yaml:"retry_threshold,omitempty"`

	// RetryBackoff is the pause before a failing webhook is retried.
	RetryBackoff time.Duration `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty"`
}

// Flags returns the []cli.Flag related to current options.
func (o *StreamOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "journal",
			Sources:     cli.EnvVars("CANON_JOURNAL"),
			Usage:       "append emitted events to a JSONL journal file",
			Value:       o.Journal,
			Destination: &o.Journal,
			Category:    StreamFlagCategory,
		},
		&cli.StringSliceFlag{
			Name:        "webhook",
			Sources:     cli.EnvVars("CANON_WEBHOOKS"),
			Usage:       "endpoint to POST emitted events to, repeatable",
			Value:       o.Webhooks,
			Destination: &o.Webhooks,
			Category:    StreamFlagCategory,
		},
		&cli.IntFlag{
			Name:        "retry-threshold",
			Sources:     cli.EnvVars("CANON_RETRY_THRESHOLD"),
			Usage:       "webhook failure count before backing off",
			Value:       o.RetryThreshold,
			Destination: &o.RetryThreshold,
			Category:    StreamFlagCategory,
		},
		&cli.DurationFlag{
			Name:        "retry-backoff",
			Sources:     cli.EnvVars("CANON_RETRY_BACKOFF"),
			Usage:       "pause before a failing webhook is retried",
			Value:       o.RetryBackoff,
			Destination: &o.RetryBackoff,
			Category:    StreamFlagCategory,
		},
	}
}

// Enabled reports whether any sink is configured.
func (o *StreamOptions) Enabled() bool {
	return o.Journal != "" || len(o.Webhooks) > 0
}

// Attach wires the configured sinks into the bus.
func (o *StreamOptions) Attach(bus *stream.Bus) error {
	if o.Journal != "" {
		sink, err := stream.NewJournalSink(afero.NewOsFs(), o.Journal)
		if err != nil {
			return err
		}
		if err := bus.Attach(sink); err != nil {
			return err
		}
	}
	for _, endpoint := range o.Webhooks {
		sink := stream.NewWebhookSink(endpoint, nil)
		if err := bus.AttachReliable(sink, int(o.RetryThreshold), o.RetryBackoff); err != nil {
			return err
		}
	}
	return nil
}

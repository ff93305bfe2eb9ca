package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/lock"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/roles"
	"github.com/arxiv/canonical-go/pkg/canonical/stream"
	"github.com/arxiv/canonical-go/pkg/cmdhelper"
	"github.com/arxiv/canonical-go/pkg/commands/internal/options"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// scanBufferSize bounds one JSONL event line. Events embed full version
// state, so lines run well past bufio's default.
const scanBufferSize = 16 * 1024 * 1024

// NewBackfillCommand returns a backfill command with default values.
func NewBackfillCommand() *BackfillCommand {
	return &BackfillCommand{
		Common: options.NewCommonOptions(),
		Record: options.NewRecordOptions(),
		Stream: options.NewStreamOptions(),
	}
}

// BackfillCommand streams pre-parsed classic events into the record.
type BackfillCommand struct {
	Common *options.CommonOptions
	Record *options.RecordOptions
	Stream *options.StreamOptions

	// Events is the JSONL file of events to apply, in announcement order.
	Events string `json:"events,omitempty" yaml:"events,omitempty"`

	// Cursor is the progress file enabling resumable re-runs.
	Cursor string `json:"cursor,omitempty" yaml:"cursor,omitempty"`
}

// ToCLI transforms to a *cli.Command.
func (c *BackfillCommand) ToCLI() *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Apply a file of announcement events to the record",
		UsageText: `canon backfill --events events.jsonl --record /data/record [OPTIONS]

# Backfill with a resumable cursor
$ canon backfill --events events.jsonl --record /data/record --cursor backfill.cursor

# Resolve staged content from a local directory
$ canon backfill --events events.jsonl --record /data/record --source-dir /data/staging
`,
		Flags:  c.Flags(),
		Before: cmdhelper.BeforeFunc(cmdhelper.NoArgs()),
		Action: c.Run,
	}
}

// Flags defines the flags related to the current command.
func (c *BackfillCommand) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "events",
			Aliases:     []string{"e"},
			Sources:     cli.EnvVars("CANON_EVENTS"),
			Usage:       "JSONL file of events to apply",
			Value:       c.Events,
			Destination: &c.Events,
		},
		&cli.StringFlag{
			Name:        "cursor",
			Sources:     cli.EnvVars("CANON_CURSOR"),
			Usage:       "progress file enabling resumable re-runs",
			Value:       c.Cursor,
			Destination: &c.Cursor,
		},
	}
	flags = append(flags, c.Common.Flags()...)
	flags = append(flags, c.Record.Flags()...)
	flags = append(flags, c.Stream.Flags()...)
	return flags
}

// Run is the main function for the current command.
func (c *BackfillCommand) Run(ctx context.Context, cmd *cli.Command) error {
	if err := options.LoadConfig(c.Common.Config, c); err != nil {
		return err
	}
	c.Common.SetupLogger()
	if c.Events == "" {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "an events file is required")
	}

	reg, err := c.Record.Open(ctx)
	if err != nil {
		return err
	}

	locker := lock.New()
	release, err := locker.Acquire(ctx, lock.RecordLock)
	if err != nil {
		return err
	}
	defer release()

	var emitter stream.Emitter
	if c.Stream.Enabled() {
		bus := stream.NewBus(clock.New())
		if err := c.Stream.Attach(bus); err != nil {
			return err
		}
		defer xio.CloseAndSkipError(bus)
		emitter = bus
	}
	primary := roles.NewPrimary(reg, emitter)

	applied, skipped, err := c.apply(ctx, primary)
	if err != nil {
		return err
	}
	cmdhelper.Fprintf(cmd.Writer, "Backfill complete: %d applied, %d skipped", applied, skipped)
	return nil
}

func (c *BackfillCommand) apply(ctx context.Context, primary *roles.Primary) (applied, skipped int, err error) {
	file, err := os.Open(c.Events)
	if err != nil {
		return 0, 0, errdefs.NewE(errdefs.ErrNotFound, err)
	}
	// cancellation aborts a scan mid-file; the measured wrapper feeds the
	// completion log
	canceled := xio.NewCanceledReadCloser(ctx, file)
	measured := xio.NewMeasuredReader(canceled)
	reader := xio.WrapReader(measured, canceled.Close)
	defer xio.CloseAndSkipError(reader)

	cursor, err := c.loadCursor()
	if err != nil {
		return 0, 0, err
	}
	resuming := !cursor.IsZero()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		event := new(canonical.Event)
		if err := json.Unmarshal(scanner.Bytes(), event); err != nil {
			return applied, skipped, errdefs.Newf(canonical.ErrInvalidEvent, "line %d: %w", line, err)
		}
		eventID, err := event.EventID()
		if err != nil {
			return applied, skipped, errdefs.Newf(canonical.ErrInvalidEvent, "line %d: %w", line, err)
		}
		if resuming {
			skipped++
			if eventID.String() == cursor.String() {
				resuming = false
			}
			continue
		}

		if err := primary.AddEvents(ctx, event); err != nil {
			if errors.Is(err, register.ErrConsistency) {
				xlog.C(ctx).Warnf("skipping %s: %v", eventID, err)
				skipped++
				continue
			}
			return applied, skipped, errdefs.Newf(err, "line %d", line)
		}
		applied++
		if err := c.saveCursor(eventID); err != nil {
			return applied, skipped, err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return applied, skipped, errdefs.NewE(errdefs.ErrCanceled, err)
		}
		return applied, skipped, errdefs.NewE(errdefs.ErrSystem, err)
	}
	if resuming {
		return applied, skipped, errdefs.Newf(errdefs.ErrNotFound,
			"cursor %s not present in %s", cursor, c.Events)
	}
	xlog.C(ctx).Debugf("backfill: scanned %d bytes from %s", measured.Total(), c.Events)
	return applied, skipped, nil
}

// backfillCursor records the last applied event so an interrupted run
// resumes after it.
type backfillCursor struct {
	LastApplied identifier.EventIdentifier `json:"last_applied"`
}

func (c *BackfillCommand) loadCursor() (identifier.EventIdentifier, error) {
	var zero identifier.EventIdentifier
	if c.Cursor == "" {
		return zero, nil
	}
	data, err := os.ReadFile(c.Cursor)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, nil
		}
		return zero, errdefs.NewE(errdefs.ErrSystem, err)
	}
	var cursor backfillCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return zero, errdefs.Newf(errdefs.ErrInvalidParameter, "cursor file %s: %w", c.Cursor, err)
	}
	return cursor.LastApplied, nil
}

func (c *BackfillCommand) saveCursor(eventID identifier.EventIdentifier) error {
	if c.Cursor == "" {
		return nil
	}
	data, err := json.Marshal(backfillCursor{LastApplied: eventID})
	if err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	if err := os.WriteFile(c.Cursor, append(data, '\n'), 0o644); err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	return nil
}

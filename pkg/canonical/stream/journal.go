package stream

import (
	"os"
	"sync"

	events "github.com/docker/go-events"
	"github.com/spf13/afero"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// JournalSink appends every envelope to a JSONL file, one canonical
// JSON object per line. The journal doubles as a replayable backlog:
// feeding its lines back through a register reproduces the record.
type JournalSink struct {
	mu     sync.Mutex
	file   afero.File
	closed bool
}

// NewJournalSink opens (or creates) the journal at path for appending.
func NewJournalSink(fsys afero.Fs, path string) (*JournalSink, error) {
	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrSystem, "open journal %s: %w", path, err)
	}
	return &JournalSink{file: file}, nil
}

// Write appends one envelope line.
func (s *JournalSink) Write(event events.Event) error {
	envelope, ok := event.(Envelope)
	if !ok {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "journal: unexpected event %T", event)
	}
	data, err := canonical.CanonicalBytes(envelope)
	if err != nil {
		return errdefs.Newf(err, "journal: encode seq %s/%d", envelope.Shard, envelope.SequenceNumber)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return events.ErrSinkClosed
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return errdefs.Newf(errdefs.ErrSystem, "journal: append: %w", err)
	}
	return nil
}

// Close syncs and closes the journal file.
func (s *JournalSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Sync(); err != nil {
		return errdefs.Newf(errdefs.ErrSystem, "journal: sync: %w", err)
	}
	return s.file.Close()
}

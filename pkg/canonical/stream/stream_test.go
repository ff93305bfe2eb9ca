package stream_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/stream"
)

func testEvent(t *testing.T, vidValue string, eventType canonical.EventType) *canonical.Event {
	t.Helper()
	vid := identifier.MustParseVersioned(vidValue)
	day := identifier.NewDate(2029, time.January, 29)
	return &canonical.Event{
		Identifier: vid,
		EventDate:  day.Time().Add(10 * time.Hour),
		EventType:  eventType,
		Version: &canonical.Version{
			Identifier:         vid,
			AnnouncedDate:      day,
			AnnouncedDateFirst: day,
			SubmittedDate:      day.Time(),
			Metadata:           canonical.Metadata{PrimaryClassification: "cs.DL", Title: "t"},
			Source: canonical.CanonicalFile{
				ContentType: canonical.ContentTypeTarGz,
				Filename:    vidValue + ".tar.gz",
				Ref:         canonical.URI("arxiv:///e-prints/2029/01/" + vid.ID().String() + "/v1/" + vidValue + ".tar.gz"),
			},
		},
	}
}

func TestSequencerPerShard(t *testing.T) {
	mock := clock.NewMock()
	sequencer := stream.NewSequencer(mock)

	first := testEvent(t, "2901.00345v1", canonical.EventTypeNew)
	second := testEvent(t, "2901.00346v1", canonical.EventTypeNew)
	sharded := testEvent(t, "2901.00347v1", canonical.EventTypeNew)
	sharded.Shard = "replication"

	one := sequencer.Stamp(first)
	two := sequencer.Stamp(second)
	other := sequencer.Stamp(sharded)

	assert.Equal(t, uint64(1), one.SequenceNumber)
	assert.Zero(t, one.PreviousSequenceNumber)
	assert.Equal(t, uint64(2), two.SequenceNumber)
	assert.Equal(t, uint64(1), two.PreviousSequenceNumber)

	assert.Equal(t, uint64(1), other.SequenceNumber, "shards sequence independently")
	assert.Equal(t, "replication", other.Shard)
	assert.Equal(t, uint64(2), sequencer.Position(identifier.DefaultShard))
}

func TestBusFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := stream.NewBus(clock.NewMock())
	defer bus.Close()

	listener, err := bus.Subscribe()
	require.NoError(t, err)

	received := make(chan stream.Envelope, 8)
	done := make(chan error, 1)
	go func() {
		done <- listener.Listen(ctx, func(_ context.Context, envelope stream.Envelope) error {
			received <- envelope
			return nil
		})
	}()

	require.NoError(t, bus.Emit(ctx,
		testEvent(t, "2901.00345v1", canonical.EventTypeNew),
		testEvent(t, "2901.00346v1", canonical.EventTypeNew),
	))

	first := waitEnvelope(t, received)
	second := waitEnvelope(t, received)
	assert.Equal(t, uint64(1), first.SequenceNumber)
	assert.Equal(t, uint64(2), second.SequenceNumber)
	assert.Equal(t, canonical.EventTypeNew, first.Event.EventType)

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen loop did not stop")
	}
}

func waitEnvelope(t *testing.T, received chan stream.Envelope) stream.Envelope {
	t.Helper()
	select {
	case envelope := <-received:
		return envelope
	case <-time.After(5 * time.Second):
		t.Fatal("no envelope received")
		return stream.Envelope{}
	}
}

func TestJournalSink(t *testing.T) {
	fsys := afero.NewMemMapFs()
	sink, err := stream.NewJournalSink(fsys, "/journal/events.jsonl")
	require.NoError(t, err)

	sequencer := stream.NewSequencer(clock.NewMock())
	require.NoError(t, sink.Write(sequencer.Stamp(testEvent(t, "2901.00345v1", canonical.EventTypeNew))))
	require.NoError(t, sink.Write(sequencer.Stamp(testEvent(t, "2901.00346v1", canonical.EventTypeNew))))
	require.NoError(t, sink.Close())

	file, err := fsys.Open("/journal/events.jsonl")
	require.NoError(t, err)
	defer file.Close()

	var sequences []uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var envelope stream.Envelope
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &envelope))
		require.NotNil(t, envelope.Event)
		sequences = append(sequences, envelope.SequenceNumber)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []uint64{1, 2}, sequences)
}

func TestWebhookSink(t *testing.T) {
	var bodies atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var envelope stream.Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		bodies.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := stream.NewWebhookSink(server.URL, server.Client())
	sequencer := stream.NewSequencer(clock.NewMock())
	require.NoError(t, sink.Write(sequencer.Stamp(testEvent(t, "2901.00345v1", canonical.EventTypeNew))))
	assert.Equal(t, int64(1), bodies.Load())
	require.NoError(t, sink.Close())
}

func TestWebhookSinkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sink := stream.NewWebhookSink(server.URL, server.Client())
	sequencer := stream.NewSequencer(clock.NewMock())
	err := sink.Write(sequencer.Stamp(testEvent(t, "2901.00345v1", canonical.EventTypeNew)))
	require.Error(t, err)
}

func TestReliableDeliveryRetries(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	bus := stream.NewBus(clock.NewMock())
	sink := stream.NewWebhookSink(server.URL, server.Client())
	require.NoError(t, bus.AttachReliable(sink, 10, 10*time.Millisecond))

	require.NoError(t, bus.Emit(context.Background(), testEvent(t, "2901.00345v1", canonical.EventTypeNew)))

	require.Eventually(t, func() bool { return hits.Load() >= 3 }, 5*time.Second, 20*time.Millisecond,
		"delivery should retry until the endpoint accepts")
	require.NoError(t, bus.Close())
}

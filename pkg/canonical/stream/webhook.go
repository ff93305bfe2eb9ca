package stream

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	events "github.com/docker/go-events"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xhttp"
)

// WebhookSink POSTs each envelope as canonical JSON to one endpoint.
// Wrap it with AttachReliable to get retries; the sink itself attempts
// each delivery once.
type WebhookSink struct {
	endpoint string
	client   *http.Client

	mu     sync.Mutex
	closed bool
}

// NewWebhookSink returns a sink delivering to endpoint. A nil client
// falls back to a sane default with a request timeout.
func NewWebhookSink(endpoint string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookSink{endpoint: endpoint, client: client}
}

// Write delivers one envelope.
func (s *WebhookSink) Write(event events.Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return events.ErrSinkClosed
	}

	envelope, ok := event.(Envelope)
	if !ok {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "webhook: unexpected event %T", event)
	}
	data, err := canonical.CanonicalBytes(envelope)
	if err != nil {
		return errdefs.Newf(err, "webhook: encode seq %s/%d", envelope.Shard, envelope.SequenceNumber)
	}

	request, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "webhook %s: %w", s.endpoint, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", xhttp.UserAgent())

	response, err := s.client.Do(request)
	if err != nil {
		return errdefs.Newf(errdefs.ErrUnavailable, "webhook %s: %w", s.endpoint, err)
	}
	defer response.Body.Close()

	if err := xhttp.Success(response, http.StatusCreated, http.StatusAccepted, http.StatusNoContent); err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

// Close marks the sink closed. In-flight deliveries finish.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

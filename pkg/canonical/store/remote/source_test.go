package remote_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/remote"
)

func trustedSource(t *testing.T, server *httptest.Server) *remote.Source {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	return remote.NewSource(parsed.Host)
}

func TestCanResolveTrustsConfiguredHostsOnly(t *testing.T) {
	ctx := context.Background()
	source := remote.NewSource("export.arxiv.org")

	assert.True(t, source.CanResolve(ctx, canonical.URI("https://export.arxiv.org/src/2901.00345v1")))
	assert.False(t, source.CanResolve(ctx, canonical.URI("https://evil.example.com/src/2901.00345v1")))
	assert.False(t, source.CanResolve(ctx, canonical.URI("file:///etc/passwd")))
	assert.False(t, source.CanResolve(ctx, canonical.URI("arxiv:///e-prints/2029.manifest.json")))
}

func TestLoadIsLazyAndRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.Header().Set("Refresh", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("source package"))
	}))
	defer server.Close()

	source := trustedSource(t, server)
	uri := canonical.URI(server.URL + "/src/2901.00345v1")

	stream, err := source.Load(ctx, uri)
	require.NoError(t, err)
	defer stream.Close()

	// no request fired yet
	assert.Equal(t, int32(0), hits.Load())

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "source package", string(data))
	assert.Equal(t, int32(3), hits.Load())

	// memoized re-read, no extra request
	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)
	again, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, data, again)
	assert.Equal(t, int32(3), hits.Load())
}

func TestLoadMissingRemote(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	source := trustedSource(t, server)
	stream, err := source.Load(ctx, canonical.URI(server.URL+"/src/gone"))
	require.NoError(t, err)
	defer stream.Close()

	_, err = io.ReadAll(stream)
	require.ErrorIs(t, err, store.ErrDoesNotExist)
}

func TestLoadUntrustedHost(t *testing.T) {
	ctx := context.Background()
	source := remote.NewSource("export.arxiv.org")
	_, err := source.Load(ctx, canonical.URI("https://evil.example.com/x"))
	require.ErrorIs(t, err, store.ErrCannotResolve)
}

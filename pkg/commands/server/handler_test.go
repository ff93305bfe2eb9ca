package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/roles"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/inmemory"
	"github.com/arxiv/canonical-go/pkg/commands/server"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
)

var announceDay = identifier.NewDate(2029, time.January, 29)

type stagingSource struct {
	objects map[canonical.URI][]byte
}

func newStagingSource() *stagingSource {
	return &stagingSource{objects: map[canonical.URI][]byte{}}
}

func (s *stagingSource) CanResolve(_ context.Context, uri canonical.URI) bool {
	_, ok := s.objects[uri]
	return ok
}

func (s *stagingSource) Load(_ context.Context, uri canonical.URI) (io.ReadSeekCloser, error) {
	data, ok := s.objects[uri]
	if !ok {
		return nil, errdefs.Newf(store.ErrCannotResolve, "%s", uri)
	}
	return xio.NopReadSeeker(bytes.NewReader(data)), nil
}

func announceEvent(t *testing.T, src *stagingSource, vidValue string) *canonical.Event {
	t.Helper()
	vid := identifier.MustParseVersioned(vidValue)
	sourceName := vidValue + ".tar.gz"
	ref := canonical.URI("file:///staging/" + sourceName)
	src.objects[ref] = bytes.Repeat([]byte("x"), 1024)
	return &canonical.Event{
		Identifier: vid,
		EventDate:  announceDay.Time().Add(10 * time.Hour),
		EventType:  canonical.EventTypeNew,
		Categories: []canonical.Category{"cs.DL"},
		Version: &canonical.Version{
			Identifier:         vid,
			AnnouncedDate:      announceDay,
			AnnouncedDateFirst: announceDay,
			SubmittedDate:      announceDay.Time(),
			Metadata:           canonical.Metadata{PrimaryClassification: "cs.DL", Title: "a record"},
			Source: canonical.CanonicalFile{
				Modified:    announceDay.Time(),
				SizeBytes:   1024,
				ContentType: canonical.ContentTypeTarGz,
				Filename:    sourceName,
				Ref:         ref,
			},
		},
	}
}

// newTestRouter announces two versions and serves them read-only.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	src := newStagingSource()
	storage := inmemory.NewStorage()
	reg, err := register.Open(ctx, storage, src)
	require.NoError(t, err)
	require.NoError(t, reg.AddEvents(ctx,
		announceEvent(t, src, "2901.00345v1"),
		announceEvent(t, src, "2901.00777v1"),
	))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	server.NewHandler(roles.NewRepository(reg), storage).Register(router)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestStatus(t *testing.T) {
	router := newTestRouter(t)
	recorder := get(t, router, "/status")
	require.Equal(t, http.StatusOK, recorder.Code)

	var status server.StatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, 2, status.NumberOfVersions)
	assert.Equal(t, 2, status.NumberOfEvents)
	assert.Equal(t, 2, status.NumberOfEventsByType[canonical.EventTypeNew])
	assert.NotEmpty(t, status.Checksum)
}

func TestGetEPrint(t *testing.T) {
	router := newTestRouter(t)
	recorder := get(t, router, "/e-prints/2901.00345")
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp server.EPrintResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Versions, 1)
	assert.Equal(t, "2901.00345v1", resp.Versions[0].Identifier.String())

	assert.Equal(t, http.StatusNotFound, get(t, router, "/e-prints/2901.99999").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/e-prints/not-an-id").Code)
}

func TestGetVersion(t *testing.T) {
	router := newTestRouter(t)
	recorder := get(t, router, "/e-prints/2901.00345/1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var version canonical.Version
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &version))
	assert.True(t, version.IsAnnounced)
	assert.Equal(t, "2901.00345v1.tar.gz", version.Source.Filename)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/e-prints/2901.00345/2").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/e-prints/2901.00345/latest").Code)
}

func TestGetListing(t *testing.T) {
	router := newTestRouter(t)
	recorder := get(t, router, "/listings/2029-01-29")
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing canonical.Listing
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listing))
	assert.Len(t, listing.Events, 2)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/listings/2029-01-30").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/listings/yesterday").Code)
}

func TestGetEvents(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/events/2029", "/events/2029/1", "/events/2029/1/29"} {
		recorder := get(t, router, path)
		require.Equal(t, http.StatusOK, recorder.Code, path)

		var resp server.EventsResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count, path)
		require.Len(t, resp.Events, 2, path)
		assert.NotNil(t, resp.Events[0].Version, path)
	}

	empty := get(t, router, "/events/2030")
	require.Equal(t, http.StatusOK, empty.Code)
	var resp server.EventsResponse
	require.NoError(t, json.Unmarshal(empty.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/events/twenty").Code)
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/roles"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xiter"
)

// Handler serves the read-only record API. Every route maps onto a
// Repository capability; there are no mutation endpoints.
type Handler struct {
	reader  roles.Reader
	storage integrity.ManifestStorage
}

// NewHandler returns a handler over the given reader and manifest
// storage.
func NewHandler(reader roles.Reader, storage integrity.ManifestStorage) *Handler {
	return &Handler{reader: reader, storage: storage}
}

// Register installs the API routes.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/status", h.Status)
	router.GET("/e-prints/:id", h.EPrint)
	router.GET("/e-prints/:id/:version", h.Version)
	router.GET("/listings/:date", h.Listing)
	router.GET("/events/:year", h.Events)
	router.GET("/events/:year/:month", h.Events)
	router.GET("/events/:year/:month/:day", h.Events)
}

// StatusResponse summarizes the record from the global manifest.
type StatusResponse struct {
	NumberOfVersions     int                         `json:"number_of_versions"`
	NumberOfEvents       int                         `json:"number_of_events"`
	NumberOfEventsByType map[canonical.EventType]int `json:"number_of_events_by_type,omitempty"`
	Checksum             integrity.Checksum          `json:"checksum"`
}

// Status reports the record counters and global checksum.
func (h *Handler) Status(c *gin.Context) {
	global, err := h.storage.LoadManifest(c.Request.Context(), record.GlobalManifestSpec{}.Key())
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			// an empty record has no manifests yet
			c.JSON(http.StatusOK, StatusResponse{})
			return
		}
		abort(c, err)
		return
	}
	resp := StatusResponse{
		NumberOfVersions: global.NumberOfVersions,
		Checksum:         global.Checksum(),
	}
	// events are counted once per hierarchy; the listing side carries
	// them all
	if entry, ok := global.Entry(record.ListingsManifestSpec{}.Key()); ok {
		resp.NumberOfEvents = entry.NumberOfEvents
		resp.NumberOfEventsByType = entry.NumberOfEventsByType
	}
	c.JSON(http.StatusOK, resp)
}

// EPrintResponse is the serialized form of an e-print.
type EPrintResponse struct {
	Identifier identifier.Identifier `json:"identifier"`
	Versions   []*canonical.Version  `json:"versions"`
}

// EPrint returns all announced versions of one e-print.
func (h *Handler) EPrint(c *gin.Context) {
	id, err := identifier.Parse(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	eprint, err := h.reader.LoadEPrint(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	resp := EPrintResponse{Identifier: eprint.Identifier}
	for _, n := range eprint.VersionNumbers() {
		resp.Versions = append(resp.Versions, eprint.Versions[n])
	}
	c.JSON(http.StatusOK, resp)
}

// Version returns one version of an e-print.
func (h *Handler) Version(c *gin.Context) {
	id, err := identifier.Parse(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		abort(c, errdefs.Newf(errdefs.ErrInvalidParameter, "invalid version %q", c.Param("version")))
		return
	}
	vid, err := identifier.NewVersioned(id, number)
	if err != nil {
		abort(c, err)
		return
	}
	version, err := h.reader.LoadVersion(c.Request.Context(), vid)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// Listing returns the events announced on one day.
func (h *Handler) Listing(c *gin.Context) {
	date, err := identifier.ParseDate(c.Param("date"))
	if err != nil {
		abort(c, err)
		return
	}
	shard := c.DefaultQuery("shard", identifier.DefaultShard)
	listingID, err := identifier.NewListing(date, shard)
	if err != nil {
		abort(c, err)
		return
	}
	listing, err := h.reader.LoadListing(c.Request.Context(), listingID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// EventsResponse carries the events of one span.
type EventsResponse struct {
	Count  int                `json:"count"`
	Events []*canonical.Event `json:"events"`
}

// Events returns every event announced within a year, month or day.
func (h *Handler) Events(c *gin.Context) {
	span, err := parseSpan(c)
	if err != nil {
		abort(c, err)
		return
	}
	iterator, count, err := h.reader.LoadEvents(c.Request.Context(), span)
	if err != nil {
		abort(c, err)
		return
	}
	events, err := xiter.Collect(c.Request.Context(), iterator)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, EventsResponse{Count: count, Events: events})
}

func parseSpan(c *gin.Context) (register.Span, error) {
	var span register.Span
	year, err := spanPart(c, "year")
	if err != nil {
		return span, err
	}
	month, err := spanPart(c, "month")
	if err != nil {
		return span, err
	}
	day, err := spanPart(c, "day")
	if err != nil {
		return span, err
	}
	span.Year, span.Month, span.Day = year, time.Month(month), day
	return span, nil
}

func spanPart(c *gin.Context, name string) (int, error) {
	value := c.Param(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errdefs.Newf(errdefs.ErrInvalidParameter, "invalid %s %q", name, value)
	}
	return n, nil
}

// abort translates the error taxonomy onto HTTP statuses.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errdefs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errdefs.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, errdefs.ErrDataLoss):
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

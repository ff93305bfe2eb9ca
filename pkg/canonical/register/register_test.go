package register_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/filesystem"
	"github.com/arxiv/canonical-go/pkg/canonical/store/inmemory"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/util/xio"
	"github.com/arxiv/canonical-go/pkg/util/xiter"
)

var (
	announceDay = identifier.NewDate(2029, time.January, 29)
	replaceDay  = identifier.NewDate(2029, time.February, 15)
	withdrawDay = identifier.NewDate(2029, time.March, 2)

	sourcePayload = bytes.Repeat([]byte("S"), 4304)
	renderPayload = bytes.Repeat([]byte("R"), 404)
)

// stagingSource resolves file:///staging refs to in-memory payloads.
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

func stagingRef(name string) canonical.URI {
	return canonical.URI("file:///staging/" + name)
}

func testMetadata() canonical.Metadata {
	return canonical.Metadata{
		PrimaryClassification: "cs.DL",
		Title:                 "On the Preservation of Scholarly Records",
		Abstract:              "We describe a content addressed archive for scholarly e-prints.",
		Authors:               "Pat Scholar",
		License:               "http://creativecommons.org/licenses/by/4.0/",
	}
}

// announceEvent builds a version-creating event whose source and render
// payloads are staged in src.
func announceEvent(t *testing.T, src *stagingSource, eventType canonical.EventType, vidValue string, day, first identifier.Date) *canonical.Event {
	t.Helper()
	vid := identifier.MustParseVersioned(vidValue)
	sourceName := vidValue + ".tar.gz"
	renderName := vidValue + ".pdf"
	src.objects[stagingRef(sourceName)] = sourcePayload
	src.objects[stagingRef(renderName)] = renderPayload
	version := &canonical.Version{
		Identifier:         vid,
		AnnouncedDate:      day,
		AnnouncedDateFirst: first,
		SubmittedDate:      day.Time().Add(-24 * time.Hour),
		Metadata:           testMetadata(),
		SourceType:         canonical.SourceTypeTeX,
		Source: canonical.CanonicalFile{
			Modified:    day.Time(),
			SizeBytes:   int64(len(sourcePayload)),
			ContentType: canonical.ContentTypeTarGz,
			Filename:    sourceName,
			Ref:         stagingRef(sourceName),
		},
		Render: &canonical.CanonicalFile{
			Modified:    day.Time(),
			SizeBytes:   int64(len(renderPayload)),
			ContentType: canonical.ContentTypePDF,
			Filename:    renderName,
			Ref:         stagingRef(renderName),
		},
	}
	return &canonical.Event{
		Identifier: vid,
		EventDate:  day.Time().Add(10 * time.Hour),
		EventType:  eventType,
		Categories: []canonical.Category{"cs.DL"},
		Version:    version,
	}
}

func withdrawEvent(t *testing.T, vidValue string, day, first identifier.Date) *canonical.Event {
	t.Helper()
	vid := identifier.MustParseVersioned(vidValue)
	return &canonical.Event{
		Identifier: vid,
		EventDate:  day.Time().Add(10 * time.Hour),
		EventType:  canonical.EventTypeWithdraw,
		Categories: []canonical.Category{"cs.DL"},
		Version: &canonical.Version{
			Identifier:          vid,
			AnnouncedDate:       day,
			AnnouncedDateFirst:  first,
			SubmittedDate:       day.Time(),
			Metadata:            testMetadata(),
			ReasonForWithdrawal: "superseded by a journal publication",
		},
	}
}

func crossEvent(t *testing.T, vidValue string, day identifier.Date, category canonical.Category) *canonical.Event {
	t.Helper()
	vid := identifier.MustParseVersioned(vidValue)
	return &canonical.Event{
		Identifier: vid,
		EventDate:  day.Time().Add(12 * time.Hour),
		EventType:  canonical.EventTypeCross,
		Categories: []canonical.Category{category},
		Version:    &canonical.Version{Identifier: vid},
	}
}

func newTestRegister(t *testing.T) (*register.Register, *inmemory.Storage, *stagingSource) {
	t.Helper()
	storage := inmemory.NewStorage()
	src := newStagingSource()
	reg, err := register.Open(context.Background(), storage, src)
	require.NoError(t, err)
	return reg, storage, src
}

func TestFirstAnnouncement(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)

	event := announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)
	require.NoError(t, reg.AddEvents(ctx, event))

	base := "e-prints/2029/01/2901.00345"
	for _, key := range []canonical.Key{
		canonical.MakeKey(base, "v1", "2901.00345v1.json"),
		canonical.MakeKey(base, "v1", "2901.00345v1.tar.gz"),
		canonical.MakeKey(base, "v1", "2901.00345v1.pdf"),
		canonical.MakeKey("announcement/2029/01/29/2029-01-29-listing.json"),
	} {
		_, _, err := storage.LoadEntry(ctx, key)
		require.NoError(t, err, "missing %s", key)
	}

	vid := identifier.MustParseVersioned("2901.00345v1")
	for _, spec := range []record.KeySpec{
		record.VersionManifestSpec{Versioned: vid},
		record.EPrintManifestSpec{ID: vid.ID()},
		record.DayManifestSpec{Date: announceDay},
		record.MonthManifestSpec{Year: 2029, Month: time.January},
		record.YearManifestSpec{Year: 2029},
		record.EPrintsManifestSpec{},
		record.ListingDayManifestSpec{Date: announceDay},
		record.ListingMonthManifestSpec{Year: 2029, Month: time.January},
		record.ListingYearManifestSpec{Year: 2029},
		record.ListingsManifestSpec{},
		record.GlobalManifestSpec{},
	} {
		_, err := storage.LoadManifest(ctx, spec.Key())
		require.NoError(t, err, "missing manifest %s", spec.Key())
	}

	global, err := storage.LoadManifest(ctx, record.GlobalManifestSpec{}.Key())
	require.NoError(t, err)
	assert.Equal(t, 1, global.NumberOfVersions)
	require.NoError(t, global.ValidateCounters())

	listingID, err := event.ListingID()
	require.NoError(t, err)
	listing, err := reg.LoadListing(ctx, listingID)
	require.NoError(t, err)
	require.Len(t, listing.Events, 1)
	eventID, err := event.EventID()
	require.NoError(t, err)
	assert.Equal(t, eventID, listing.Events[0].EventID)

	version, err := reg.LoadVersion(ctx, vid)
	require.NoError(t, err)
	assert.True(t, version.IsAnnounced)
	assert.Equal(t, canonical.MakeKey(base, "v1", "2901.00345v1.tar.gz").URI(), version.Source.Ref)
	require.Len(t, version.Events, 1)
	assert.Equal(t, canonical.EventTypeNew, version.Events[0].EventType)

	stream, file, err := reg.LoadSource(ctx, vid)
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, int64(len(sourcePayload)), file.SizeBytes)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, sourcePayload, data)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)))

	v1Key := canonical.MakeKey("e-prints/2029/01/2901.00345/v1/2901.00345v1.json")
	_, v1Before, err := storage.LoadEntry(ctx, v1Key)
	require.NoError(t, err)

	ancestors := []record.KeySpec{
		record.EPrintManifestSpec{ID: identifier.MustParse("2901.00345")},
		record.DayManifestSpec{Date: announceDay},
		record.MonthManifestSpec{Year: 2029, Month: time.January},
		record.YearManifestSpec{Year: 2029},
		record.EPrintsManifestSpec{},
		record.GlobalManifestSpec{},
	}
	before := map[canonical.Key]integrity.Checksum{}
	for _, spec := range ancestors {
		m, err := storage.LoadManifest(ctx, spec.Key())
		require.NoError(t, err)
		before[spec.Key()] = m.Checksum()
	}

	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeReplace, "2901.00345v2", replaceDay, announceDay)))

	eprint, err := reg.LoadEPrint(ctx, identifier.MustParse("2901.00345"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, eprint.VersionNumbers())

	_, v1After, err := storage.LoadEntry(ctx, v1Key)
	require.NoError(t, err)
	assert.Equal(t, v1Before, v1After, "v1 must not change on replace")

	for _, spec := range ancestors {
		m, err := storage.LoadManifest(ctx, spec.Key())
		require.NoError(t, err)
		assert.NotEqual(t, before[spec.Key()], m.Checksum(), "checksum of %s must change", spec.Key())
	}

	history, err := reg.LoadHistory(ctx, identifier.MustParse("2901.00345"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, canonical.EventTypeNew, history[0].EventType)
	assert.Equal(t, identifier.MustParseVersioned("2901.00345v1"), history[0].Identifier)
	assert.Equal(t, canonical.EventTypeReplace, history[1].EventType)
	assert.Equal(t, identifier.MustParseVersioned("2901.00345v2"), history[1].Identifier)
}

func TestCrossList(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx,
		announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay),
		announceEvent(t, src, canonical.EventTypeReplace, "2901.00345v2", replaceDay, announceDay),
	))
	keysBefore := storage.Keys()

	event := crossEvent(t, "2901.00345v2", replaceDay, "cs.IR")
	require.NoError(t, reg.AddEvents(ctx, event))

	version, err := reg.LoadVersion(ctx, identifier.MustParseVersioned("2901.00345v2"))
	require.NoError(t, err)
	assert.True(t, version.Metadata.HasCategory("cs.IR"))
	assert.Equal(t, "cs.DL", version.Metadata.PrimaryClassification.String())

	keysAfter := storage.Keys()
	sort.Strings(keysBefore)
	sort.Strings(keysAfter)
	assert.Equal(t, keysBefore, keysAfter, "a cross-list event must not create file keys")

	listingID, err := event.ListingID()
	require.NoError(t, err)
	listing, err := reg.LoadListing(ctx, listingID)
	require.NoError(t, err)
	require.Len(t, listing.Events, 2)
	assert.Equal(t, canonical.EventTypeCross, listing.Events[1].EventType)
	assert.Equal(t, []canonical.Category{"cs.IR"}, listing.Events[1].Categories)
}

func TestCrossListRejectsContent(t *testing.T) {
	ctx := context.Background()
	reg, _, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)))

	event := crossEvent(t, "2901.00345v1", replaceDay, "cs.IR")
	event.Version.Source = canonical.CanonicalFile{
		ContentType: canonical.ContentTypeTarGz,
		Filename:    "sneaky.tar.gz",
		Ref:         stagingRef("sneaky.tar.gz"),
	}
	err := reg.AddEvents(ctx, event)
	require.Error(t, err)
	assert.ErrorIs(t, err, canonical.ErrInvalidEvent)
}

func TestDuplicateNew(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)))

	globalBefore, err := storage.LoadManifest(ctx, record.GlobalManifestSpec{}.Key())
	require.NoError(t, err)
	keysBefore := storage.Keys()
	sort.Strings(keysBefore)

	err = reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay))
	require.Error(t, err)
	assert.ErrorIs(t, err, register.ErrConsistency)
	assert.ErrorIs(t, err, errdefs.ErrConflict)

	globalAfter, err := storage.LoadManifest(ctx, record.GlobalManifestSpec{}.Key())
	require.NoError(t, err)
	assert.Equal(t, globalBefore.Checksum(), globalAfter.Checksum())
	keysAfter := storage.Keys()
	sort.Strings(keysAfter)
	assert.Equal(t, keysBefore, keysAfter)
}

func TestUpdateMissingVersion(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegister(t)
	err := reg.AddEvents(ctx, crossEvent(t, "2901.00345v1", announceDay, "cs.IR"))
	require.Error(t, err)
	assert.ErrorIs(t, err, register.ErrConsistency)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	reg, _, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx,
		announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay),
		announceEvent(t, src, canonical.EventTypeReplace, "2901.00345v2", replaceDay, announceDay),
	))
	require.NoError(t, reg.AddEvents(ctx, withdrawEvent(t, "2901.00345v3", withdrawDay, announceDay)))

	version, err := reg.LoadVersion(ctx, identifier.MustParseVersioned("2901.00345v3"))
	require.NoError(t, err)
	assert.True(t, version.IsWithdrawn)
	assert.Equal(t, "superseded by a journal publication", version.ReasonForWithdrawal)
	assert.True(t, version.Source.IsZero())

	_, _, err = reg.LoadSource(ctx, version.Identifier)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	eprint, err := reg.LoadEPrint(ctx, identifier.MustParse("2901.00345"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, eprint.VersionNumbers())
}

func TestRecovery(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx,
		announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay),
		announceEvent(t, src, canonical.EventTypeReplace, "2901.00345v2", replaceDay, announceDay),
	))

	globalKey := record.GlobalManifestSpec{}.Key()
	require.NoError(t, integrity.Validate(ctx, storage, globalKey))

	corrupted := canonical.MakeKey("e-prints/2029/01/2901.00345/v1/2901.00345v1.tar.gz")
	require.True(t, storage.CorruptEntry(corrupted, []byte("corrupted payload")))

	err := integrity.Validate(ctx, storage, globalKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, integrity.ErrChecksumMismatch)
	assert.Contains(t, err.Error(), corrupted.String())
}

func TestLoadEvent(t *testing.T) {
	ctx := context.Background()
	reg, _, src := newTestRegister(t)
	event := announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)
	require.NoError(t, reg.AddEvents(ctx, event))

	eventID, err := event.EventID()
	require.NoError(t, err)
	loaded, err := reg.LoadEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, canonical.EventTypeNew, loaded.EventType)
	assert.Equal(t, event.Identifier, loaded.Identifier)
	require.NotNil(t, loaded.Version)
	assert.True(t, loaded.Version.IsAnnounced)
}

func TestLoadEvents(t *testing.T) {
	ctx := context.Background()
	reg, _, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx,
		announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay),
		announceEvent(t, src, canonical.EventTypeReplace, "2901.00345v2", replaceDay, announceDay),
	))
	require.NoError(t, reg.AddEvents(ctx, crossEvent(t, "2901.00345v2", replaceDay, "cs.IR")))
	require.NoError(t, reg.AddEvents(ctx, withdrawEvent(t, "2901.00345v3", withdrawDay, announceDay)))

	iterator, count, err := reg.LoadEvents(ctx, register.Span{Year: 2029})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	events, err := xiter.Collect(ctx, iterator)
	require.NoError(t, err)
	require.Len(t, events, 4)
	types := make([]canonical.EventType, 0, len(events))
	for _, event := range events {
		require.NotNil(t, event.Version)
		types = append(types, event.EventType)
	}
	assert.Equal(t, []canonical.EventType{
		canonical.EventTypeNew,
		canonical.EventTypeReplace,
		canonical.EventTypeCross,
		canonical.EventTypeWithdraw,
	}, types)

	iterator, count, err = reg.LoadEvents(ctx, register.SpanOf(replaceDay))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	events, err = xiter.Collect(ctx, iterator)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	iterator, count, err = reg.LoadEvents(ctx, register.Span{Year: 2030})
	require.NoError(t, err)
	assert.Zero(t, count)
	events, err = xiter.Collect(ctx, iterator)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRegisterOnFilesystem(t *testing.T) {
	ctx := context.Background()
	storage := filesystem.NewStorage(afero.NewMemMapFs(), "/record")
	src := newStagingSource()
	reg, err := register.Open(ctx, storage, src)
	require.NoError(t, err)

	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)))

	vid := identifier.MustParseVersioned("2901.00345v1")
	version, err := reg.LoadVersion(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, vid, version.Identifier)

	require.NoError(t, integrity.Validate(ctx, storage, record.GlobalManifestSpec{}.Key()))

	stream, _, err := reg.LoadRender(ctx, vid)
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, renderPayload, data)
}

// manifestOrderStorage records the order in which manifests are
// persisted.
type manifestOrderStorage struct {
	store.Storage
	stored []canonical.Key
}

func (s *manifestOrderStorage) StoreManifest(ctx context.Context, key canonical.Key, manifest *integrity.Manifest) error {
	s.stored = append(s.stored, key)
	return s.Storage.StoreManifest(ctx, key, manifest)
}

func TestFlushPersistsChildrenBeforeParents(t *testing.T) {
	ctx := context.Background()
	storage := &manifestOrderStorage{Storage: inmemory.NewStorage()}
	src := newStagingSource()
	reg, err := register.Open(ctx, storage, src)
	require.NoError(t, err)

	event := announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)
	require.NoError(t, reg.AddEvents(ctx, event))

	position := func(key canonical.Key) int {
		for i, stored := range storage.stored {
			if stored == key {
				return i
			}
		}
		t.Fatalf("manifest %s was never stored", key)
		return -1
	}

	vid := identifier.MustParseVersioned("2901.00345v1")
	version := position(record.VersionManifestSpec{Versioned: vid}.Key())
	eprint := position(record.EPrintManifestSpec{ID: vid.ID()}.Key())
	day := position(record.DayManifestSpec{Date: announceDay}.Key())
	month := position(record.MonthManifestSpec{Year: 2029, Month: time.January}.Key())
	year := position(record.YearManifestSpec{Year: 2029}.Key())
	eprints := position(record.EPrintsManifestSpec{}.Key())
	global := position(record.GlobalManifestSpec{}.Key())

	// the day manifest shares a directory with the e-print manifest and
	// sorts lexically before it, so path order alone would invert these
	assert.Less(t, version, eprint)
	assert.Less(t, eprint, day)
	assert.Less(t, day, month)
	assert.Less(t, month, year)
	assert.Less(t, year, eprints)
	assert.Less(t, eprints, global)

	listingDay := position(record.ListingDayManifestSpec{Date: announceDay}.Key())
	listingMonth := position(record.ListingMonthManifestSpec{Year: 2029, Month: time.January}.Key())
	listingYear := position(record.ListingYearManifestSpec{Year: 2029}.Key())
	listings := position(record.ListingsManifestSpec{}.Key())
	assert.Less(t, listingDay, listingMonth)
	assert.Less(t, listingMonth, listingYear)
	assert.Less(t, listingYear, listings)
	assert.Less(t, listings, global)
}

func TestUpdateReplacesSourceUnderNewFilename(t *testing.T) {
	ctx := context.Background()
	reg, storage, src := newTestRegister(t)
	require.NoError(t, reg.AddEvents(ctx, announceEvent(t, src, canonical.EventTypeNew, "2901.00345v1", announceDay, announceDay)))

	vid := identifier.MustParseVersioned("2901.00345v1")
	oldKey := record.VersionFileSpec{Versioned: vid, Filename: "2901.00345v1.tar.gz"}.Key()
	renderKey := record.VersionFileSpec{Versioned: vid, Filename: "2901.00345v1.pdf"}.Key()

	newName := "2901.00345v1.rev2.tar.gz"
	newKey := record.VersionFileSpec{Versioned: vid, Filename: newName}.Key()
	src.objects[stagingRef(newName)] = sourcePayload

	update := &canonical.Event{
		Identifier: vid,
		EventDate:  replaceDay.Time().Add(10 * time.Hour),
		EventType:  canonical.EventTypeUpdate,
		Categories: []canonical.Category{"cs.DL"},
		Version: &canonical.Version{
			Identifier: vid,
			Source: canonical.CanonicalFile{
				Modified:    replaceDay.Time(),
				SizeBytes:   int64(len(sourcePayload)),
				ContentType: canonical.ContentTypeTarGz,
				Filename:    newName,
				Ref:         stagingRef(newName),
			},
			Render: &canonical.CanonicalFile{
				ContentType: canonical.ContentTypePDF,
				Filename:    "2901.00345v1.pdf",
				Ref:         renderKey.URI(),
			},
		},
	}
	require.NoError(t, reg.AddEvents(ctx, update))

	manifest, err := storage.LoadManifest(ctx, record.VersionManifestSpec{Versioned: vid}.Key())
	require.NoError(t, err)
	_, exists := manifest.Entry(oldKey)
	assert.False(t, exists, "superseded member must leave the manifest")
	_, exists = manifest.Entry(newKey)
	assert.True(t, exists)
	_, exists = manifest.Entry(renderKey)
	assert.True(t, exists, "untouched render must stay")

	version, err := reg.LoadVersion(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, newKey.URI(), version.Source.Ref)
}

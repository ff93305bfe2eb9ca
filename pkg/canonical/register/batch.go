package register

import (
	"context"
	"errors"
	"sort"

	"github.com/samber/lo"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/integrity"
	"github.com/arxiv/canonical-go/pkg/canonical/record"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// manifestBatch stages manifest updates during an AddEvents run.
// Manifests load once, mutate in memory, and flush deepest-first so
// that every child is persisted before the parent that references it.
type manifestBatch struct {
	storage   store.Storage
	manifests map[canonical.Key]*integrity.Manifest
	dirty     map[canonical.Key]bool
}

func newManifestBatch(storage store.Storage) *manifestBatch {
	return &manifestBatch{
		storage:   storage,
		manifests: map[canonical.Key]*integrity.Manifest{},
		dirty:     map[canonical.Key]bool{},
	}
}

// get returns the staged manifest at key, loading it from storage on
// first access. A key with no stored manifest yields an empty one.
func (b *manifestBatch) get(ctx context.Context, key canonical.Key) (*integrity.Manifest, error) {
	if m, ok := b.manifests[key]; ok {
		return m, nil
	}
	m, err := b.storage.LoadManifest(ctx, key)
	if errors.Is(err, store.ErrDoesNotExist) {
		m = integrity.NewManifest()
	} else if err != nil {
		return nil, errdefs.Newf(err, "load manifest %s", key)
	}
	b.manifests[key] = m
	return m, nil
}

// put stages a fully built manifest at key, replacing any staged or
// stored state.
func (b *manifestBatch) put(key canonical.Key, m *integrity.Manifest) {
	b.manifests[key] = m
	b.dirty[key] = true
}

// upsert merges the entry into the manifest at key and marks it dirty.
func (b *manifestBatch) upsert(ctx context.Context, key canonical.Key, entry integrity.ManifestEntry) (*integrity.Manifest, error) {
	m, err := b.get(ctx, key)
	if err != nil {
		return nil, err
	}
	m.UpdateOrExtend(entry)
	b.dirty[key] = true
	return m, nil
}

// flush persists every dirty manifest, children before parents.
// Ordering by ascending tower level persists the tower bottom-up with
// the global manifest last. Path depth is not a safe proxy: a day
// manifest and a new-style e-print manifest share the same month
// directory.
func (b *manifestBatch) flush(ctx context.Context) error {
	keys := lo.Keys(b.dirty)
	sort.Slice(keys, func(i, j int) bool {
		li := manifestLevel(keys[i])
		lj := manifestLevel(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if err := b.storage.StoreManifest(ctx, key, b.manifests[key]); err != nil {
			return errdefs.Newf(err, "flush manifest %s", key)
		}
		delete(b.dirty, key)
	}
	if len(keys) > 0 {
		xlog.C(ctx).Debugf("register: flushed %d manifests", len(keys))
	}
	return nil
}

// manifestLevel ranks a manifest key by its position in the tower.
// Children rank strictly lower than the parent whose manifest lists
// them. Keys that do not parse rank first, which keeps the ordering of
// the known tower intact.
func manifestLevel(key canonical.Key) int {
	spec, err := record.ParseKey(key)
	if err != nil {
		return 0
	}
	switch spec.(type) {
	case record.VersionManifestSpec:
		return 1
	case record.EPrintManifestSpec:
		return 2
	case record.DayManifestSpec, record.ListingDayManifestSpec:
		return 3
	case record.MonthManifestSpec, record.ListingMonthManifestSpec:
		return 4
	case record.YearManifestSpec, record.ListingYearManifestSpec:
		return 5
	case record.EPrintsManifestSpec, record.ListingsManifestSpec:
		return 6
	case record.GlobalManifestSpec:
		return 7
	default:
		return 0
	}
}

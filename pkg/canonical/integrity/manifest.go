package integrity

import (
	"slices"
	"strings"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrCounterMismatch is returned when a manifest's aggregate counters
// disagree with the sum of its entries. This is a fatal integrity error
// at write time.
var ErrCounterMismatch = errdefs.Newf(errdefs.ErrDataLoss, "manifest counter mismatch")

// ManifestEntry records one member of a collection: its key, its
// checksum, and the counters and descriptors rolled up from it.
type ManifestEntry struct {
	// Key is the canonical key of the member.
	Key canonical.Key `json:"key"`
	// Checksum is the member's checksum: the bitstream digest for leaf
	// members, the collection digest for manifest members.
	Checksum Checksum `json:"checksum"`
	// NumberOfVersions counts the versions below the member.
	NumberOfVersions int `json:"number_of_versions,omitempty"`
	// NumberOfEvents counts the events below the member.
	NumberOfEvents int `json:"number_of_events,omitempty"`
	// NumberOfEventsByType tallies the events below the member by type.
	NumberOfEventsByType map[canonical.EventType]int `json:"number_of_events_by_type,omitempty"`
	// SizeBytes is the stored size of a leaf member.
	SizeBytes int64 `json:"size_bytes,omitempty"`
	// MimeType is the MIME type of a leaf member.
	MimeType string `json:"mime_type,omitempty"`
}

// IsManifest reports whether the entry references a child manifest
// rather than a leaf bitstream.
func (e ManifestEntry) IsManifest() bool {
	return strings.HasSuffix(e.Key.Path(), ".manifest.json")
}

// Manifest is the deterministic description of one collection: its
// members sorted by key plus aggregate counters. Manifests serialize as
// canonical JSON and are themselves addressable bitstreams.
type Manifest struct {
	// Entries lists the members sorted by key.
	Entries []ManifestEntry `json:"entries"`
	// NumberOfEvents is the total event count below this collection.
	NumberOfEvents int `json:"number_of_events"`
	// NumberOfVersions is the total version count below this collection.
	NumberOfVersions int `json:"number_of_versions"`
	// NumberOfEventsByType tallies the events below this collection.
	NumberOfEventsByType map[canonical.EventType]int `json:"number_of_events_by_type"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Entries:              []ManifestEntry{},
		NumberOfEventsByType: map[canonical.EventType]int{},
	}
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.Entries) }

// Entry returns the entry with the given key.
func (m *Manifest) Entry(key canonical.Key) (ManifestEntry, bool) {
	i, found := slices.BinarySearchFunc(m.Entries, key, func(e ManifestEntry, k canonical.Key) int {
		return strings.Compare(string(e.Key), string(k))
	})
	if !found {
		return ManifestEntry{}, false
	}
	return m.Entries[i], true
}

// UpdateOrExtend upserts the entry by key, keeping the entries sorted,
// and re-rolls the aggregate counters from the entries.
func (m *Manifest) UpdateOrExtend(entry ManifestEntry) {
	i, found := slices.BinarySearchFunc(m.Entries, entry.Key, func(e ManifestEntry, k canonical.Key) int {
		return strings.Compare(string(e.Key), string(k))
	})
	if found {
		m.Entries[i] = entry
	} else {
		m.Entries = slices.Insert(m.Entries, i, entry)
	}
	m.recount()
}

// Remove deletes the entry with the given key and re-rolls the
// counters. It reports whether an entry was removed.
func (m *Manifest) Remove(key canonical.Key) bool {
	i, found := slices.BinarySearchFunc(m.Entries, key, func(e ManifestEntry, k canonical.Key) int {
		return strings.Compare(string(e.Key), string(k))
	})
	if !found {
		return false
	}
	m.Entries = slices.Delete(m.Entries, i, i+1)
	m.recount()
	return true
}

// recount rebuilds the aggregate counters additively from the entries.
func (m *Manifest) recount() {
	m.NumberOfEvents = 0
	m.NumberOfVersions = 0
	m.NumberOfEventsByType = map[canonical.EventType]int{}
	for _, entry := range m.Entries {
		m.NumberOfEvents += entry.NumberOfEvents
		m.NumberOfVersions += entry.NumberOfVersions
		for eventType, count := range entry.NumberOfEventsByType {
			m.NumberOfEventsByType[eventType] += count
		}
	}
}

// Checksum digests the members' checksums in key order.
func (m *Manifest) Checksum() Checksum {
	sums := make([]Checksum, len(m.Entries))
	for i, entry := range m.Entries {
		sums[i] = entry.Checksum
	}
	return FromChecksums(sums...)
}

// EntryFor summarizes this manifest as a member of its parent
// collection.
func (m *Manifest) EntryFor(key canonical.Key) ManifestEntry {
	byType := make(map[canonical.EventType]int, len(m.NumberOfEventsByType))
	for eventType, count := range m.NumberOfEventsByType {
		byType[eventType] = count
	}
	if len(byType) == 0 {
		byType = nil
	}
	return ManifestEntry{
		Key:                  key,
		Checksum:             m.Checksum(),
		NumberOfVersions:     m.NumberOfVersions,
		NumberOfEvents:       m.NumberOfEvents,
		NumberOfEventsByType: byType,
	}
}

// CanonicalBytes renders the manifest as canonical JSON. Entries are
// already sorted by key, so the byte representation is deterministic.
func (m *Manifest) CanonicalBytes() ([]byte, error) {
	return canonical.CanonicalBytes(m)
}

// ValidateCounters checks that the aggregate counters equal the sum of
// the entries' counters.
func (m *Manifest) ValidateCounters() error {
	events, versions := 0, 0
	byType := map[canonical.EventType]int{}
	for _, entry := range m.Entries {
		events += entry.NumberOfEvents
		versions += entry.NumberOfVersions
		for eventType, count := range entry.NumberOfEventsByType {
			byType[eventType] += count
		}
	}
	if events != m.NumberOfEvents {
		return errdefs.Newf(ErrCounterMismatch, "events: have %d, entries sum to %d", m.NumberOfEvents, events)
	}
	if versions != m.NumberOfVersions {
		return errdefs.Newf(ErrCounterMismatch, "versions: have %d, entries sum to %d", m.NumberOfVersions, versions)
	}
	for eventType, count := range byType {
		if m.NumberOfEventsByType[eventType] != count {
			return errdefs.Newf(ErrCounterMismatch, "events of type %s: have %d, entries sum to %d",
				eventType, m.NumberOfEventsByType[eventType], count)
		}
	}
	for eventType, count := range m.NumberOfEventsByType {
		if count != 0 && byType[eventType] != count {
			return errdefs.Newf(ErrCounterMismatch, "events of type %s: have %d, entries sum to %d",
				eventType, count, byType[eventType])
		}
	}
	return nil
}

package identifier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
)

func TestParseListing(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		lid, err := identifier.ParseListing("2029-01-29-listing")
		require.NoError(t, err)
		assert.Equal(t, "2029-01-29", lid.Date().String())
		assert.Equal(t, "listing", lid.Shard())
		assert.Equal(t, "2029-01-29-listing", lid.String())
	})
	t.Run("default shard", func(t *testing.T) {
		lid, err := identifier.NewListing(identifier.NewDate(2029, time.January, 29), "")
		require.NoError(t, err)
		assert.Equal(t, identifier.DefaultShard, lid.Shard())
	})
	t.Run("custom shard", func(t *testing.T) {
		lid, err := identifier.ParseListing("2029-01-29-cs")
		require.NoError(t, err)
		assert.Equal(t, "cs", lid.Shard())
	})
	t.Run("bad shard", func(t *testing.T) {
		_, err := identifier.NewListing(identifier.NewDate(2029, time.January, 29), "Bad Shard")
		assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
	})
	t.Run("no shard", func(t *testing.T) {
		_, err := identifier.ParseListing("2029-01-29")
		assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
	})
}

func TestEventIdentifier_RoundTrip(t *testing.T) {
	vid := identifier.MustParseVersioned("2901.00345v1")
	at := time.Date(2029, 1, 29, 14, 30, 5, 123456789, time.UTC)

	eid, err := identifier.NewEvent(vid, at, "")
	require.NoError(t, err)
	assert.Equal(t, identifier.DefaultShard, eid.Shard())

	parsed, err := identifier.ParseEvent(eid.String())
	require.NoError(t, err)
	assert.Zero(t, parsed.Versioned().Compare(vid))
	assert.True(t, parsed.Timestamp().Equal(at))
	assert.Equal(t, eid.Shard(), parsed.Shard())
	assert.Equal(t, eid.String(), parsed.String())
}

func TestEventIdentifier_NormalizesToUTC(t *testing.T) {
	vid := identifier.MustParseVersioned("hep-ph/0301001v1")
	loc := time.FixedZone("UTC+9", 9*3600)
	at := time.Date(2003, 1, 15, 8, 0, 0, 0, loc)

	eid, err := identifier.NewEvent(vid, at, "listing")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, eid.Timestamp().Location())
	assert.True(t, eid.Timestamp().Equal(at))

	// The listing is addressed by the UTC date of the instant.
	assert.Equal(t, "2003-01-14-listing", eid.ListingID().String())
}

func TestParseEvent_Invalid(t *testing.T) {
	testcases := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!"},
		{"no separators", "aGVsbG8"},
		{"bad identifier", "bm90LWFuLWlkOjoyMDI5LTAxLTI5VDAwOjAwOjAwWjo6bGlzdGluZw"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := identifier.ParseEvent(tc.input)
			assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
		})
	}
}

package identifier_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
)

func TestParse(t *testing.T) {
	testcases := []struct {
		input       string
		oldStyle    bool
		category    string
		numeric     string
		year        int
		month       int
		incremental int
	}{
		{"hep-ph/0301001", true, "hep-ph", "0301001", 2003, 1, 1},
		{"math.GT/0309136", true, "math.GT", "0309136", 2003, 9, 136},
		{"solv-int/9511005", true, "solv-int", "9511005", 1995, 11, 5},
		{"hep-th/9108001", true, "hep-th", "9108001", 1991, 8, 1},
		{"0704.0001", false, "", "0704.0001", 2007, 4, 1},
		{"1501.00001", false, "", "1501.00001", 2015, 1, 1},
		{"2901.00345", false, "", "2901.00345", 2029, 1, 345},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			id, err := identifier.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.input, id.String())
			assert.Equal(t, tc.oldStyle, id.IsOldStyle())
			assert.Equal(t, tc.category, id.CategoryPart())
			assert.Equal(t, tc.numeric, id.NumericPart())
			assert.Equal(t, tc.year, id.Year())
			assert.Equal(t, tc.month, id.Month())
			assert.Equal(t, tc.incremental, id.IncrementalPart())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	testcases := []string{
		"",
		"not-an-id",
		"2901.345",       // suffix too short
		"2913.00345",     // month out of range
		"hep-ph/0313001", // month out of range
		"HEP-PH/0301001", // archive must be lowercase
		"2901.00345v1",   // versioned form is a different type
		"250.12345",
	}
	for _, tc := range testcases {
		t.Run(tc, func(t *testing.T) {
			_, err := identifier.Parse(tc)
			require.Error(t, err)
			assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
		})
	}
}

func TestIdentifier_Compare(t *testing.T) {
	ordered := []string{
		"hep-th/9108001",
		"solv-int/9511005",
		"hep-ph/0301001",
		"math.GT/0309136",
		"0704.0001",
		"1501.00001",
		"2901.00345",
	}
	for i := 1; i < len(ordered); i++ {
		prev := identifier.MustParse(ordered[i-1])
		next := identifier.MustParse(ordered[i])
		assert.Negative(t, prev.Compare(next), "%s should sort before %s", prev, next)
		assert.Positive(t, next.Compare(prev))
		assert.Zero(t, next.Compare(next))
	}
}

func TestIdentifier_JSONRoundTrip(t *testing.T) {
	id := identifier.MustParse("math.GT/0309136")
	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"math.GT/0309136"`, string(raw))

	var decoded identifier.Identifier
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded)
}

func TestParseVersioned(t *testing.T) {
	t.Run("new style", func(t *testing.T) {
		v, err := identifier.ParseVersioned("2901.00345v2")
		require.NoError(t, err)
		assert.Equal(t, "2901.00345", v.ID().String())
		assert.Equal(t, 2, v.Version())
		assert.Equal(t, "2901.00345v2", v.String())
	})
	t.Run("old style with v in archive", func(t *testing.T) {
		v, err := identifier.ParseVersioned("solv-int/9511005v1")
		require.NoError(t, err)
		assert.Equal(t, "solv-int", v.ID().CategoryPart())
		assert.Equal(t, 1, v.Version())
	})
	t.Run("missing suffix", func(t *testing.T) {
		_, err := identifier.ParseVersioned("2901.00345")
		assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
	})
	t.Run("version zero", func(t *testing.T) {
		_, err := identifier.ParseVersioned("2901.00345v0")
		assert.ErrorIs(t, err, identifier.ErrBadIdentifier)
	})
}

func TestVersionedIdentifier_Compare(t *testing.T) {
	v1 := identifier.MustParseVersioned("2901.00345v1")
	v2 := identifier.MustParseVersioned("2901.00345v2")
	other := identifier.MustParseVersioned("2902.00001v1")

	assert.Negative(t, v1.Compare(v2))
	assert.Positive(t, v2.Compare(v1))
	assert.Negative(t, v2.Compare(other))
	assert.Zero(t, v1.Compare(v1))
}

func TestDate(t *testing.T) {
	d, err := identifier.ParseDate("2029-01-29")
	require.NoError(t, err)
	assert.Equal(t, "2029-01-29", d.String())
	assert.Equal(t, 2029, d.Year)

	_, err = identifier.ParseDate("2029-13-29")
	assert.Error(t, err)

	earlier := identifier.NewDate(2029, 1, 28)
	assert.Positive(t, d.Compare(earlier))
	assert.Negative(t, earlier.Compare(d))
}

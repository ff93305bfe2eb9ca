// Package record maps domain identifiers to canonical keys and back.
//
// All keys live under the arxiv:/// scheme and fall into one of two
// hierarchies:
//
//	e-prints/YYYY/MM/<arxiv-id>/v<n>/<files>
//	announcement/YYYY/MM/DD/YYYY-MM-DD-<shard>.json
//
// with a parallel tower of manifest keys at every level. The key
// algebra is pure: a KeySpec renders a key deterministically, and
// ParseKey is its exact inverse.
package record

import (
	"fmt"

	"github.com/arxiv/canonical-go/pkg/canonical"
	"github.com/arxiv/canonical-go/pkg/canonical/identifier"
)

const (
	// EPrintsRoot is the first path segment of the e-print hierarchy.
	EPrintsRoot = "e-prints"
	// ListingsRoot is the first path segment of the announcement
	// hierarchy.
	ListingsRoot = "announcement"

	manifestSuffix = ".manifest.json"
)

// KeySpec is a typed description of one canonical key. Every spec
// renders its key deterministically and names the member it addresses
// within its parent manifest.
type KeySpec interface {
	// Key renders the canonical key.
	Key() canonical.Key
	// MemberName is the name of the member within the parent collection,
	// e.g. "2901.00345v1" for a version manifest inside an e-print
	// manifest.
	MemberName() string
}

// idPath returns the directory path of an identifier under its month
// directory. Old style identifiers split into "<category>/<numeric>".
func idPath(id identifier.Identifier) []string {
	if id.IsOldStyle() {
		return []string{id.CategoryPart(), id.NumericPart()}
	}
	return []string{id.String()}
}

// fileStem returns the file name stem of a versioned identifier. Old
// style identifiers drop the category part, which already appears in
// the directory path.
func fileStem(v identifier.VersionedIdentifier) string {
	if v.ID().IsOldStyle() {
		return fmt.Sprintf("%sv%d", v.ID().NumericPart(), v.Version())
	}
	return v.String()
}

// yearMonth renders the YYYY/MM directory segments of an identifier.
func yearMonth(id identifier.Identifier) (string, string) {
	return fmt.Sprintf("%04d", id.Year()), fmt.Sprintf("%02d", id.Month())
}

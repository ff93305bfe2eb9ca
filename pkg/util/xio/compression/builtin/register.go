// Package builtin registers the compression formats known to the record store.
package builtin

import (
	_ "github.com/arxiv/canonical-go/pkg/util/xio/compression/gzip" // register gzip compression
)

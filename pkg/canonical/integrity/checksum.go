// Package integrity implements the hierarchical integrity model of the
// canonical record: url-safe base64 md5 checksums, deterministic
// manifests with rolled-up counters, and the validation walk that
// verifies a whole record bit for bit.
package integrity

import (
	"crypto/md5" //nolint:gosec // the record format specifies md5 content checksums
	"encoding/base64"
	"io"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// ErrChecksumMismatch is returned when recomputed content no longer
// matches its recorded checksum. The record is considered corrupt until
// the mismatch is resolved.
var ErrChecksumMismatch = errdefs.Newf(errdefs.ErrDataLoss, "checksum mismatch")

// Checksum is the url-safe unpadded base64 form of an md5 digest.
//
// Leaf checksums digest the stored bitstream; collection checksums
// digest the concatenation of their members' checksums sorted by key,
// so that identical contents in any two replicas hash identically.
type Checksum string

// FromBytes computes the checksum of a byte slice.
func FromBytes(data []byte) Checksum {
	sum := md5.Sum(data) //nolint:gosec // record format checksum
	return Checksum(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// FromReader computes the checksum and size of a stream, consuming it.
func FromReader(r io.Reader) (Checksum, int64, error) {
	hash := md5.New() //nolint:gosec // record format checksum
	size, err := io.Copy(hash, r)
	if err != nil {
		return "", 0, errdefs.NewE(errdefs.ErrSystem, err)
	}
	return Checksum(base64.RawURLEncoding.EncodeToString(hash.Sum(nil))), size, nil
}

// FromChecksums computes a collection checksum over already ordered
// member checksums.
func FromChecksums(sums ...Checksum) Checksum {
	hash := md5.New() //nolint:gosec // record format checksum
	for _, sum := range sums {
		_, _ = io.WriteString(hash, string(sum))
	}
	return Checksum(base64.RawURLEncoding.EncodeToString(hash.Sum(nil)))
}

// String returns the serialized checksum value.
func (c Checksum) String() string { return string(c) }

// IsZero reports whether c is empty.
func (c Checksum) IsZero() bool { return c == "" }

// Package canonical defines the domain model of the arXiv canonical
// record: e-print versions, announcement events, listings and the
// descriptors of the bitstreams they reference.
//
// Every type serializes to and from canonical JSON so that two replicas
// holding the same content produce byte-identical files.
package canonical

import (
	"net/url"
	"path"
	"strings"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// KeyScheme is the URI scheme of canonical keys.
const KeyScheme = "arxiv"

// ErrBadURI is returned when a reference string has no valid scheme.
var ErrBadURI = errdefs.Newf(errdefs.ErrInvalidParameter, "bad uri")

// URI references a bitstream. Three schemes are valid:
//
//   - arxiv:///…        a canonical key within the record
//   - file:///abs/path  a filesystem path
//   - http(s)://…       a trusted remote
//
// A plain absolute filesystem path normalizes to file://.
type URI string

// ParseURI normalizes and validates a reference string.
func ParseURI(s string) (URI, error) {
	if s == "" {
		return "", errdefs.Newf(ErrBadURI, "empty uri")
	}
	if strings.HasPrefix(s, "/") {
		return URI("file://" + s), nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", errdefs.Newf(ErrBadURI, "%q: %w", s, err)
	}
	switch u.Scheme {
	case KeyScheme, "file", "http", "https":
		return URI(s), nil
	}
	return "", errdefs.Newf(ErrBadURI, "%q: unsupported scheme %q", s, u.Scheme)
}

// String returns the URI value.
func (u URI) String() string { return string(u) }

// IsZero reports whether u is empty.
func (u URI) IsZero() bool { return u == "" }

// Scheme returns the URI scheme, empty when the value is malformed.
func (u URI) Scheme() string {
	parsed, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return parsed.Scheme
}

// IsKey reports whether the URI is a canonical key.
func (u URI) IsKey() bool { return u.Scheme() == KeyScheme }

// IsFile reports whether the URI is a local filesystem path.
func (u URI) IsFile() bool { return u.Scheme() == "file" }

// IsRemote reports whether the URI is an HTTP or HTTPS remote.
func (u URI) IsRemote() bool {
	scheme := u.Scheme()
	return scheme == "http" || scheme == "https"
}

// Path returns the path component of the URI.
func (u URI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return parsed.Path
}

// Key converts the URI to a canonical key. The second return is false
// when the URI does not use the arxiv scheme.
func (u URI) Key() (Key, bool) {
	if !u.IsKey() {
		return "", false
	}
	return Key(u), true
}

// keyPrefix is the rendered prefix of every canonical key.
const keyPrefix = KeyScheme + ":///"

// Key is a URI within the canonical record, always of the form
// "arxiv:///<path>".
type Key string

// MakeKey joins path segments into a canonical key.
func MakeKey(parts ...string) Key {
	return Key(keyPrefix + path.Join(parts...))
}

// ParseKey validates s as a canonical key.
func ParseKey(s string) (Key, error) {
	if !strings.HasPrefix(s, keyPrefix) || len(s) == len(keyPrefix) {
		return "", errdefs.Newf(ErrBadURI, "%q is not a canonical key", s)
	}
	return Key(s), nil
}

// String returns the key value.
func (k Key) String() string { return string(k) }

// IsZero reports whether k is empty.
func (k Key) IsZero() bool { return k == "" }

// URI returns the key as a generic URI.
func (k Key) URI() URI { return URI(k) }

// Path returns the record-relative path of the key, without a leading
// slash.
func (k Key) Path() string {
	return strings.TrimPrefix(string(k), keyPrefix)
}

// Base returns the last path element of the key.
func (k Key) Base() string {
	return path.Base(k.Path())
}

// Child returns the key extended with additional path segments.
func (k Key) Child(parts ...string) Key {
	segments := append([]string{k.Path()}, parts...)
	return MakeKey(segments...)
}

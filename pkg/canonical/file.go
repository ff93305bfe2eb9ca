package canonical

import (
	"strings"
	"time"
)

// ContentType classifies the payload of a canonical file.
type ContentType string

const (
	ContentTypeJSON  ContentType = "json"
	ContentTypeAbs   ContentType = "abs"
	ContentTypeTar   ContentType = "tar"
	ContentTypeTarGz ContentType = "targz"
	ContentTypePDF   ContentType = "pdf"
	ContentTypePS    ContentType = "ps"
	ContentTypeHTML  ContentType = "html"
	ContentTypeDVI   ContentType = "dvi"
	ContentTypeGz    ContentType = "gz"
)

var contentTypes = map[ContentType]struct {
	extension string
	mimeType  string
}{
	ContentTypeJSON:  {".json", "application/json"},
	ContentTypeAbs:   {".abs", "text/plain"},
	ContentTypeTar:   {".tar", "application/x-tar"},
	ContentTypeTarGz: {".tar.gz", "application/gzip"},
	ContentTypePDF:   {".pdf", "application/pdf"},
	ContentTypePS:    {".ps", "application/postscript"},
	ContentTypeHTML:  {".html", "text/html"},
	ContentTypeDVI:   {".dvi", "application/x-dvi"},
	ContentTypeGz:    {".gz", "application/gzip"},
}

// ContentTypeFromFilename guesses the content type from a file name. The
// ".tar.gz" suffix wins over the bare ".gz" suffix.
func ContentTypeFromFilename(name string) (ContentType, bool) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return ContentTypeTarGz, true
	}
	for ct, info := range contentTypes {
		if ct == ContentTypeTarGz {
			continue
		}
		if strings.HasSuffix(lower, info.extension) {
			return ct, true
		}
	}
	return "", false
}

// String returns the serialized enum value.
func (ct ContentType) String() string { return string(ct) }

// IsValid reports whether ct is one of the known content types.
func (ct ContentType) IsValid() bool {
	_, ok := contentTypes[ct]
	return ok
}

// Extension returns the canonical file extension, including the dot.
func (ct ContentType) Extension() string {
	return contentTypes[ct].extension
}

// MimeType returns the MIME type used when serving the file.
func (ct ContentType) MimeType() string {
	return contentTypes[ct].mimeType
}

// SourceType is the legacy code describing what kind of source package a
// version carries.
type SourceType string

const (
	SourceTypeTeX       SourceType = "tex"
	SourceTypePDFTeX    SourceType = "pdftex"
	SourceTypePDF       SourceType = "pdf"
	SourceTypePS        SourceType = "ps"
	SourceTypeHTML      SourceType = "html"
	SourceTypeDocx      SourceType = "docx"
	SourceTypeWithdrawn SourceType = "withdrawn"
)

// CanonicalFile is the immutable descriptor of one bitstream. The bytes
// themselves are not held; they are fetched on demand by dereferencing
// Ref through a source.
type CanonicalFile struct {
	// Modified is the last modification instant of the bitstream.
	Modified time.Time `json:"modified"`
	// SizeBytes is the size of the stored bitstream.
	SizeBytes int64 `json:"size_bytes"`
	// ContentType classifies the payload.
	ContentType ContentType `json:"content_type"`
	// Filename is the name the bitstream is stored under.
	Filename string `json:"filename,omitempty"`
	// Ref locates the bitstream. After a file is stored its ref is the
	// canonical key; before that it may point at any resolvable source.
	Ref URI `json:"ref"`
	// IsGzipped marks bitstreams that arrive wrapped in an outer gzip
	// layer. Storage unwraps exactly one layer at store time and clears
	// the flag.
	IsGzipped bool `json:"is_gzipped"`
}

// MimeType returns the MIME type of the file's content type.
func (f CanonicalFile) MimeType() string {
	return f.ContentType.MimeType()
}

// IsZero reports whether the descriptor is empty.
func (f CanonicalFile) IsZero() bool {
	return f == CanonicalFile{}
}

package canonical

import (
	"bytes"
	"encoding/json"
)

// CanonicalBytes renders v as canonical JSON: UTF-8, object keys sorted,
// no insignificant whitespace. Identical values always produce identical
// bytes, which is what makes replica checksums comparable.
func CanonicalBytes(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through a generic value so that maps re-marshal with
	// sorted keys. UseNumber keeps integer counters verbatim.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

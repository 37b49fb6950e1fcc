// Package normalize maps the inconsistent list envelopes returned by the
// backend onto a single paged shape.
//
// Every response is first classified into exactly one Shape. Extraction
// then works from the classification, so the precedence between
// structurally overlapping envelopes lives in one place (Classify).
package normalize

import "fmt"

// Shape is the recognized envelope variant of a list response.
type Shape int

const (
	// Unknown matches nothing; it yields an empty page.
	Unknown Shape = iota
	// MetadataEnvelope is {"data": [...], "metadata": {"total": n}}.
	MetadataEnvelope
	// SpringPage is {"content": [...], "totalElements": n}.
	SpringPage
	// NestedPage is {"data": {"content": [...], "totalElements": n}}.
	NestedPage
	// PlainDataArray is {"data": [...]} without metadata.
	PlainDataArray
	// RawArray is a bare JSON array.
	RawArray
)

var shapeNames = map[Shape]string{
	Unknown:          "unknown",
	MetadataEnvelope: "metadata_envelope",
	SpringPage:       "spring_page",
	NestedPage:       "nested_page",
	PlainDataArray:   "plain_data_array",
	RawArray:         "raw_array",
}

// String returns the snake_case name of the shape.
func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized names
// decode to Unknown.
func (s *Shape) UnmarshalText(b []byte) error {
	for k, v := range shapeNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	*s = Unknown
	return nil
}

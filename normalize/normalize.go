package normalize

import (
	"encoding/json"
	"fmt"
)

// Envelope is a classified response: its shape, the raw items and the
// server-side total.
type Envelope struct {
	Shape Shape
	Items []json.RawMessage
	Total int
}

// Page is the normalized list result consumed by list pages. Items keep
// server order; Total counts all matching records server-side.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Classify maps an arbitrary response body onto exactly one Shape.
// The first matching rule wins:
//
//  1. data is an array and metadata is present → MetadataEnvelope
//  2. content is an array                      → SpringPage
//  3. data.content is an array                 → NestedPage
//  4. data is an array                         → PlainDataArray
//  5. the body is an array                     → RawArray
//  6. anything else, including invalid JSON    → Unknown
func Classify(raw []byte) Envelope {
	root := parse(raw)
	data := root.field("data")

	if data.isArr && root.field("metadata").present() {
		meta := root.field("metadata")
		return Envelope{
			Shape: MetadataEnvelope,
			Items: data.arr,
			Total: firstTotal(0, meta.field("total"), meta.field("totalElements")),
		}
	}

	if content := root.field("content"); content.isArr {
		return Envelope{
			Shape: SpringPage,
			Items: content.arr,
			Total: firstTotal(0, root.field("totalElements"), root.field("total")),
		}
	}

	if content := data.field("content"); content.isArr {
		return Envelope{
			Shape: NestedPage,
			Items: content.arr,
			Total: firstTotal(0,
				data.field("totalElements"),
				data.field("total"),
				data.field("metadata").field("total"),
			),
		}
	}

	if data.isArr {
		return Envelope{
			Shape: PlainDataArray,
			Items: data.arr,
			Total: firstTotal(len(data.arr), root.field("totalElements"), root.field("total")),
		}
	}

	if root.isArr {
		return Envelope{Shape: RawArray, Items: root.arr, Total: len(root.arr)}
	}

	return Envelope{Shape: Unknown, Items: []json.RawMessage{}}
}

// List normalizes a response body into raw items and a total. It never
// fails: unrecognized bodies yield an empty page.
func List(raw []byte) Page[json.RawMessage] {
	env := Classify(raw)
	return Page[json.RawMessage]{Items: env.Items, Total: env.Total}
}

// ListValue normalizes an already decoded value, e.g. the result of
// unmarshalling into any. A nil value yields an empty page.
func ListValue(v any) Page[any] {
	raw, err := json.Marshal(v)
	if err != nil {
		return Page[any]{Items: []any{}}
	}
	page, err := Decode[any](raw)
	if err != nil {
		return Page[any]{Items: []any{}}
	}
	return page
}

// Decode normalizes raw and decodes every item into T. The only error
// source is item decoding; unrecognized envelopes still yield an empty
// page and a nil error.
func Decode[T any](raw []byte) (Page[T], error) {
	env := Classify(raw)
	items := make([]T, len(env.Items))
	for i, item := range env.Items {
		if err := json.Unmarshal(item, &items[i]); err != nil {
			return Page[T]{Items: []T{}}, fmt.Errorf("normalize: decode item %d: %w", i, err)
		}
	}
	return Page[T]{Items: items, Total: env.Total}, nil
}

// ExtractArray pulls a flat array out of a non-paged response, trying in
// order: the body itself, .permissions, .data, .result. Anything else
// yields an empty slice.
func ExtractArray(raw []byte) []json.RawMessage {
	root := parse(raw)
	if root.isArr {
		return root.arr
	}
	for _, key := range []string{"permissions", "data", "result"} {
		if f := root.field(key); f.isArr {
			return f.arr
		}
	}
	return []json.RawMessage{}
}

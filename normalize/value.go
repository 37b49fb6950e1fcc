package normalize

import (
	"bytes"
	"encoding/json"
	"math"
)

// maxTotal caps totals to the range a float64 represents exactly.
const maxTotal = 1 << 53

// node is a lazily inspected JSON value.
type node struct {
	raw json.RawMessage
	obj map[string]json.RawMessage
	arr []json.RawMessage

	isObj bool
	isArr bool
}

func parse(raw []byte) node {
	raw = bytes.TrimSpace(raw)
	n := node{raw: raw}
	if len(raw) == 0 {
		return n
	}
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &n.obj); err == nil {
			n.isObj = true
		}
	case '[':
		if err := json.Unmarshal(raw, &n.arr); err == nil {
			n.isArr = true
			if n.arr == nil {
				n.arr = []json.RawMessage{}
			}
		}
	}
	return n
}

// field returns the named member; absent members and non-objects
// produce an empty node.
func (n node) field(name string) node {
	if !n.isObj {
		return node{}
	}
	raw, ok := n.obj[name]
	if !ok {
		return node{}
	}
	return parse(raw)
}

// present mirrors truthiness: absent, null, false, 0 and "" are not
// present; every object and array is.
func (n node) present() bool {
	if n.isObj || n.isArr {
		return true
	}
	switch string(n.raw) {
	case "", "null", "false", `""`:
		return false
	}
	if f, ok := n.number(); ok {
		return f != 0
	}
	return true
}

// number reports the value as a float when it is a JSON number.
func (n node) number() (float64, bool) {
	if len(n.raw) == 0 {
		return 0, false
	}
	c := n.raw[0]
	if c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var num json.Number
	if err := json.Unmarshal(n.raw, &num); err != nil {
		return 0, false
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// firstTotal returns the first candidate holding a number, converted to
// a non-negative int. When no candidate is numeric it returns fallback.
func firstTotal(fallback int, candidates ...node) int {
	for _, c := range candidates {
		if f, ok := c.number(); ok {
			return clampTotal(f)
		}
	}
	return fallback
}

func clampTotal(f float64) int {
	switch {
	case f <= 0:
		return 0
	case f >= maxTotal:
		return maxTotal
	}
	return int(f)
}

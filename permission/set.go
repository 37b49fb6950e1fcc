package permission

// Set is an ordered list of granted records.
type Set []Record

// Has reports whether some record matches code.
func (s Set) Has(code string) bool {
	for _, r := range s {
		if r.Matches(code) {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of codes is held.
func (s Set) HasAny(codes ...string) bool {
	for _, c := range codes {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of codes is held. An empty list is
// vacuously held.
func (s Set) HasAll(codes ...string) bool {
	for _, c := range codes {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Missing returns the codes that are not held, preserving order.
func (s Set) Missing(codes ...string) []string {
	var out []string
	for _, c := range codes {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsUniversal reports whether the set is exactly the owner wildcard.
func (s Set) IsUniversal() bool {
	return len(s) == 1 && s[0].NormalizedCode() == Wildcard
}

// Clone returns a copy that does not share the backing array.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Permission != nil {
			ref := *out[i].Permission
			out[i].Permission = &ref
		}
	}
	return out
}

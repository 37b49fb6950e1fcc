// Package permission defines the Permission Record granted to a subject
// within a scope, and helpers for matching permission codes.
//
// The remote API is inconsistent about where it puts the capability code.
// A Record accepts all observed shapes:
//
//	{"code": "rfq_view"}
//	{"permissionCode": "rfq_view"}
//	{"permission": {"code": "rfq_view"}}
//	"rfq_view"
package permission

import (
	"bytes"
	"encoding/json"
)

// Wildcard is the single code held by an owner session.
const Wildcard = "*"

// Ref is the nested permission object some endpoints return.
type Ref struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// Record is one granted capability for a subject within a scope.
type Record struct {
	Code           string `json:"code,omitempty"`
	PermissionCode string `json:"permissionCode,omitempty"`
	Permission     *Ref   `json:"permission,omitempty"`
	Name           string `json:"name,omitempty"`
}

// New returns a Record carrying code in its primary field.
func New(code string) Record { return Record{Code: code} }

// Universal returns the permission set held by an owner.
func Universal() []Record { return []Record{New(Wildcard)} }

// NormalizedCode returns the first non-empty of Code, PermissionCode
// and Permission.Code.
func (r Record) NormalizedCode() string {
	switch {
	case r.Code != "":
		return r.Code
	case r.PermissionCode != "":
		return r.PermissionCode
	case r.Permission != nil:
		return r.Permission.Code
	}
	return ""
}

// Matches reports whether any of the record's code fields equals code.
// An empty code never matches.
func (r Record) Matches(code string) bool {
	if code == "" {
		return false
	}
	if r.Code == code || r.PermissionCode == code {
		return true
	}
	return r.Permission != nil && r.Permission.Code == code
}

// UnmarshalJSON accepts a bare string, an object in any of the known
// shapes, or null. Non-string code fields are ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = Record{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.Code)
	}
	if data[0] != '{' {
		return nil
	}

	var raw struct {
		Code           any `json:"code"`
		PermissionCode any `json:"permissionCode"`
		Permission     any `json:"permission"`
		Name           any `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Code = asString(raw.Code)
	r.PermissionCode = asString(raw.PermissionCode)
	r.Name = asString(raw.Name)
	if nested, ok := raw.Permission.(map[string]any); ok {
		r.Permission = &Ref{
			Code: asString(nested["code"]),
			Name: asString(nested["name"]),
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Decode decodes each raw element into a Record. Elements that fail to
// decode become empty records so a single bad entry cannot hide the rest.
func Decode(items []json.RawMessage) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			rec = Record{}
		}
		out = append(out, rec)
	}
	return out
}

// Codes returns the normalized codes of records in order, skipping
// records that carry no code.
func Codes(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if c := r.NormalizedCode(); c != "" {
			out = append(out, c)
		}
	}
	return out
}

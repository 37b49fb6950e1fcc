package permission

import (
	"encoding/json"
	"testing"
)

func TestRecordUnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"code", `{"code":"role_manage"}`, "role_manage"},
		{"permissionCode", `{"permissionCode":"role_manage"}`, "role_manage"},
		{"nested", `{"permission":{"code":"role_manage"}}`, "role_manage"},
		{"bare string", `"role_manage"`, "role_manage"},
		{"null", `null`, ""},
		{"number", `42`, ""},
		{"non-string code", `{"code":7}`, ""},
		{"non-object permission", `{"permission":"role_manage"}`, ""},
		{"code wins", `{"code":"a","permissionCode":"b"}`, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := r.NormalizedCode(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSetHasShapeTolerant(t *testing.T) {
	inputs := []string{
		`[{"permissionCode":"role_manage"}]`,
		`[{"code":"role_manage"}]`,
		`[{"permission":{"code":"role_manage"}}]`,
	}
	for _, in := range inputs {
		var s Set
		if err := json.Unmarshal([]byte(in), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if !s.Has("role_manage") {
			t.Fatalf("expected %s to grant role_manage", in)
		}
		if s.Has("other") {
			t.Fatalf("expected %s not to grant other", in)
		}
	}
}

func TestSetAnyAll(t *testing.T) {
	s := Set{New("product_manage"), New("rfq_view")}

	if !s.HasAny("product_manage", "x") {
		t.Fatal("expected HasAny to be true")
	}
	if !s.HasAll("product_manage", "rfq_view") {
		t.Fatal("expected HasAll to be true")
	}
	if s.HasAll("product_manage", "x") {
		t.Fatal("expected HasAll to be false")
	}
	if s.HasAny() {
		t.Fatal("expected HasAny of nothing to be false")
	}
	if !s.HasAll() {
		t.Fatal("expected HasAll of nothing to be true")
	}
	missing := s.Missing("rfq_view", "x", "y")
	if len(missing) != 2 || missing[0] != "x" || missing[1] != "y" {
		t.Fatalf("unexpected missing codes: %v", missing)
	}
}

func TestEmptyCodeNeverMatches(t *testing.T) {
	s := Set{{}}
	if s.Has("") {
		t.Fatal("expected empty code not to match an empty record")
	}
}

func TestUniversal(t *testing.T) {
	s := Set(Universal())
	if !s.IsUniversal() {
		t.Fatal("expected universal set")
	}
	if got := Codes(s); len(got) != 1 || got[0] != Wildcard {
		t.Fatalf("expected [*], got %v", got)
	}
}

func TestDecodeKeepsPosition(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"code":"a"}`),
		json.RawMessage(`{"code":`),
		json.RawMessage(`"c"`),
	}
	got := Decode(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if Codes(got)[1] != "c" {
		t.Fatalf("unexpected codes: %v", Codes(got))
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := Set{{Permission: &Ref{Code: "a"}}}
	c := s.Clone()
	c[0].Permission.Code = "b"
	if s[0].Permission.Code != "a" {
		t.Fatal("expected clone not to share nested refs")
	}
}

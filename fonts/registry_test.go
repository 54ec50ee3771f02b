package fonts

import "testing"

func TestNormalizeFamily(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Nanum Gothic", "nanumgothic"},
		{"NanumGothic", "nanumgothic"},
		{"nanum-gothic", "nanumgothic"},
		{"ABCDEF+Helvetica", "helvetica"},
		{"Helvetica", "helvetica"},
	}
	for _, tc := range cases {
		if got := normalizeFamily(tc.in); got != tc.want {
			t.Errorf("normalizeFamily(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("Test Sans", []byte{1, 2, 3}); err != nil {
		t.Fatalf("register: %v", err)
	}
	data, exact := r.Resolve("test-sans")
	if !exact || len(data) != 3 {
		t.Fatalf("resolve = %v, %v", data, exact)
	}
}

func TestResolveFallsBackToFirstRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("primary", []byte{1})
	r.Register("secondary", []byte{2})
	data, exact := r.Resolve("unknown family")
	if exact {
		t.Fatalf("unknown family reported as exact")
	}
	if len(data) != 1 || data[0] != 1 {
		t.Fatalf("fallback should be first registered, got %v", data)
	}
}

func TestResolveEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	if data, _ := r.Resolve("anything"); data != nil {
		t.Fatalf("empty registry returned data")
	}
	if _, _, err := r.ResolveNamed("anything"); err == nil {
		t.Fatalf("expected error from empty registry")
	}
}

func TestResolveNamed(t *testing.T) {
	r := NewRegistry()
	r.Register("Main Font", []byte{9})
	key, data, err := r.ResolveNamed("unknown")
	if err != nil {
		t.Fatalf("resolve named: %v", err)
	}
	if key != "mainfont" || len(data) != 1 {
		t.Fatalf("key = %q, data = %v", key, data)
	}
}

func TestRegisterRejectsEmpty(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("x", nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
	if err := r.Register("", []byte{1}); err == nil {
		t.Fatalf("expected error for empty family")
	}
}

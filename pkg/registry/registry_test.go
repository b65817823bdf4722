package registry

import "testing"

func TestResolve(t *testing.T) {
	r := New(map[string]string{
		"gemini-2.0-flash": "gpt-4o-mini",
		"gemini-1.5-pro":   "gpt-4o",
	}, "gpt-4o-mini")

	if got, ok := r.Resolve("gemini-1.5-pro"); !ok || got != "gpt-4o" {
		t.Errorf("Resolve(gemini-1.5-pro) = %q, %v", got, ok)
	}
	if got, ok := r.Resolve("gemini-experimental"); !ok || got != "gpt-4o-mini" {
		t.Errorf("fallback: got %q, %v", got, ok)
	}
}

func TestResolveNoFallback(t *testing.T) {
	r := New(map[string]string{"a": "b"}, "")
	if _, ok := r.Resolve("unknown"); ok {
		t.Error("expected unmapped name to be rejected without a fallback")
	}
}

func TestSetAndSources(t *testing.T) {
	r := New(nil, "")
	r.Set("b-model", "x")
	r.Set("a-model", "y")
	got := r.Sources()
	if len(got) != 2 || got[0] != "a-model" || got[1] != "b-model" {
		t.Errorf("Sources() = %v", got)
	}
	if target, ok := r.Resolve("a-model"); !ok || target != "y" {
		t.Errorf("Resolve after Set = %q, %v", target, ok)
	}
}

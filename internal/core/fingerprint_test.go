package core

import "testing"

func TestFingerprint(t *testing.T) {
	note := "groceries"
	a := Fingerprint("Checking", "checking", true, false, &note, int64(1000))
	b := Fingerprint("Checking", "checking", true, false, &note, int64(1000))
	if a != b {
		t.Fatalf("expected deterministic fingerprint, got %q and %q", a, b)
	}
	if len(a) != 8 {
		t.Fatalf("expected 8 characters, got %d (%q)", len(a), a)
	}

	c := Fingerprint("Checking", "checking", true, false, &note, int64(1001))
	if a == c {
		t.Fatalf("expected different fingerprint for different balance")
	}
}

func TestFingerprint_NilAndEmptyDiffer(t *testing.T) {
	empty := ""
	var unset *string
	if Fingerprint("x", unset) == Fingerprint("x", &empty) {
		t.Fatalf("expected nil and empty string to hash differently")
	}
	if Fingerprint("x", unset) != Fingerprint("x", nil) {
		t.Fatalf("expected typed nil and untyped nil to hash the same")
	}
}

func TestFingerprint_KnownValue(t *testing.T) {
	if got := Fingerprint("a", "b"); got != "d0726241" {
		t.Fatalf("expected d0726241, got %q", got)
	}
}

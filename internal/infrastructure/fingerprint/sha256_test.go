package fingerprint

import "testing"

func TestFingerprintNormalization(t *testing.T) {
	h := New()

	base := h.Fingerprint("Senior Go Engineer\nwith 10 years experience")
	cases := []string{
		"senior go engineer with 10 years experience",
		"  Senior   Go\tEngineer\n\nwith 10 years   experience  ",
		"SENIOR GO ENGINEER WITH 10 YEARS EXPERIENCE",
	}
	for _, text := range cases {
		if got := h.Fingerprint(text); got != base {
			t.Errorf("Fingerprint(%q) = %s, want %s", text, got, base)
		}
	}

	if h.Fingerprint("a different resume") == base {
		t.Fatalf("distinct content must not collide")
	}
}

func TestFingerprintStable(t *testing.T) {
	h := New()
	if h.Fingerprint("text") != h.Fingerprint("text") {
		t.Fatalf("fingerprint is not deterministic")
	}
	if len(h.Fingerprint("text")) != 64 {
		t.Fatalf("expected hex sha256 digest")
	}
}

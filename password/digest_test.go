package password

import "testing"

func TestDigestKnownVector(t *testing.T) {
	got := Digest("hello world")
	if got != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Fatalf("unexpected digest: %s", got)
	}
	if len(got) != DigestLength {
		t.Fatalf("expected %d hex chars, got %d", DigestLength, len(got))
	}
}

func TestDigestEmptyInput(t *testing.T) {
	if got := Digest(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected digest for empty input: %s", got)
	}
}

func TestDigestStable(t *testing.T) {
	first := Digest("correct-password-123")
	for i := 0; i < 10; i++ {
		if Digest("correct-password-123") != first {
			t.Fatal("digest is not stable across calls")
		}
	}
}

func TestDigestSingleCharacterChange(t *testing.T) {
	base := "secret"
	variants := []string{"Secret", "secreT", "secre", "secret1", "sekret"}
	for _, v := range variants {
		if Digest(v) == Digest(base) {
			t.Fatalf("expected digest of %q to differ from %q", v, base)
		}
	}
}

func TestDigestLowercaseHex(t *testing.T) {
	for _, r := range Digest("UPPER") {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("digest contains non lowercase-hex rune %q", r)
		}
	}
}

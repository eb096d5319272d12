package password

import (
	"reflect"
	"testing"
)

func strictPolicy() Policy {
	return Policy{MinLength: 8, MinUpper: 1, MinLower: 1, MinDigit: 1, MinSpecial: 1}
}

func TestValidAcceptsCompliantPassword(t *testing.T) {
	if !Valid("Abc123!x", strictPolicy()) {
		t.Fatal("expected Abc123!x to satisfy policy")
	}
}

func TestValidRejectsMissingClasses(t *testing.T) {
	if Valid("abc12345", strictPolicy()) {
		t.Fatal("expected abc12345 to fail policy")
	}
	got := Check("abc12345", strictPolicy())
	want := []Rule{RuleMinUpper, RuleMinSpecial}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Check = %v, want %v", got, want)
	}
}

func TestCheckRules(t *testing.T) {
	tests := []struct {
		name   string
		pw     string
		policy Policy
		want   []Rule
	}{
		{name: "zero policy accepts empty", pw: "", policy: Policy{}, want: nil},
		{name: "too short", pw: "Ab1!", policy: strictPolicy(), want: []Rule{RuleMinLength}},
		{name: "no lower", pw: "ABC123!!", policy: strictPolicy(), want: []Rule{RuleMinLower}},
		{name: "no digit", pw: "Abcdefg!", policy: strictPolicy(), want: []Rule{RuleMinDigit}},
		{name: "everything missing", pw: "", policy: strictPolicy(), want: []Rule{
			RuleMinLength, RuleMinUpper, RuleMinLower, RuleMinDigit, RuleMinSpecial,
		}},
		{name: "multiple of each", pw: "AAbb11@@", policy: Policy{MinUpper: 2, MinLower: 2, MinDigit: 2, MinSpecial: 2}, want: nil},
		{name: "not enough specials", pw: "AAbb11@x", policy: Policy{MinSpecial: 2}, want: []Rule{RuleMinSpecial}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.pw, tt.policy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Check(%q) = %v, want %v", tt.pw, got, tt.want)
			}
		})
	}
}

func TestCountSpecialCharacterSet(t *testing.T) {
	c := Count(SpecialCharacters)
	if c.Special != len(SpecialCharacters) {
		t.Fatalf("expected all %d special characters counted, got %d", len(SpecialCharacters), c.Special)
	}

	// Not in the set.
	c = Count("&*+=<>{}|\" ")
	if c.Special != 0 {
		t.Fatalf("expected no special characters, got %d", c.Special)
	}
}

func TestCountIgnoresNonASCIILetters(t *testing.T) {
	c := Count("ÄÖÜäöü١")
	if c.Upper != 0 || c.Lower != 0 || c.Digit != 0 {
		t.Fatalf("expected non-ASCII runes to be ignored, got %+v", c)
	}
	if c.Length != 7 {
		t.Fatalf("expected length 7, got %d", c.Length)
	}
}

func TestCountLengthInUTF16Units(t *testing.T) {
	cases := []struct {
		pw   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"é", 1},
		{"😀", 2},
		{"Ab1!😀😀", 8},
		{"\xff\xfe", 2},
	}
	for _, tc := range cases {
		if got := Count(tc.pw).Length; got != tc.want {
			t.Fatalf("Count(%q).Length = %d, want %d", tc.pw, got, tc.want)
		}
	}

	p := Policy{MinLength: 8}
	if !Valid("Ab1!😀😀", p) {
		t.Fatal("two astral runes must add four units")
	}
	if Valid("Ab1!😀é", p) {
		t.Fatal("seven units must fail an eight unit minimum")
	}
}

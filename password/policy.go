package password

import (
	"strings"
	"unicode/utf16"
)

// SpecialCharacters is the set of characters counted by Policy.MinSpecial.
const SpecialCharacters = "@%/\\'!#$^?:()[]~`-_.,"

// Rule names a single policy requirement.
type Rule string

const (
	RuleMinLength  Rule = "min_length"
	RuleMinUpper   Rule = "min_upper"
	RuleMinLower   Rule = "min_lower"
	RuleMinDigit   Rule = "min_digit"
	RuleMinSpecial Rule = "min_special"
)

// Policy holds the minimum counts a password must satisfy. Zero disables a rule.
type Policy struct {
	MinLength  int
	MinUpper   int
	MinLower   int
	MinDigit   int
	MinSpecial int
}

// Counts is the character-class breakdown of a candidate password.
type Counts struct {
	Length  int // UTF-16 code units
	Upper   int
	Lower   int
	Digit   int
	Special int
}

// Count classifies every rune of pw. Upper, lower and digit are ASCII classes.
// Length is measured in UTF-16 code units, the unit other CosyncJWT clients
// and the backend use, so a rune outside the BMP counts as 2.
func Count(pw string) Counts {
	var c Counts
	for _, r := range pw {
		if n := utf16.RuneLen(r); n > 0 {
			c.Length += n
		} else {
			c.Length++
		}
		switch {
		case r >= 'A' && r <= 'Z':
			c.Upper++
		case r >= 'a' && r <= 'z':
			c.Lower++
		case r >= '0' && r <= '9':
			c.Digit++
		case strings.ContainsRune(SpecialCharacters, r):
			c.Special++
		}
	}
	return c
}

// Check returns the rules pw fails, in a stable order. An empty result means
// the password satisfies p.
func Check(pw string, p Policy) []Rule {
	c := Count(pw)

	var failed []Rule
	if c.Length < p.MinLength {
		failed = append(failed, RuleMinLength)
	}
	if c.Upper < p.MinUpper {
		failed = append(failed, RuleMinUpper)
	}
	if c.Lower < p.MinLower {
		failed = append(failed, RuleMinLower)
	}
	if c.Digit < p.MinDigit {
		failed = append(failed, RuleMinDigit)
	}
	if c.Special < p.MinSpecial {
		failed = append(failed, RuleMinSpecial)
	}
	return failed
}

// Valid reports whether pw satisfies every rule of p.
func Valid(pw string, p Policy) bool {
	return len(Check(pw, p)) == 0
}

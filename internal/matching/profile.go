package matching

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// alphabetSize is the number of letters a profile tracks (a through z).
const alphabetSize = 26

// LetterProfile counts occurrences of each lowercase letter a-z. Index 0 is
// 'a'. The zero value is the empty profile.
type LetterProfile [alphabetSize]int

// Extract lowercases s and counts its a-z letters. Every other rune, including
// non-ASCII letters, is ignored.
func Extract(s string) LetterProfile {
	var p LetterProfile
	// Casers are stateful, so each call gets its own.
	for _, r := range cases.Lower(language.Und).String(s) {
		if r >= 'a' && r <= 'z' {
			p[r-'a']++
		}
	}
	return p
}

// Count returns the occurrences of letter, which may be upper or lower case.
// Runes outside a-z report zero.
func (p LetterProfile) Count(letter rune) int {
	if letter >= 'A' && letter <= 'Z' {
		letter += 'a' - 'A'
	}
	if letter < 'a' || letter > 'z' {
		return 0
	}
	return p[letter-'a']
}

// Total returns the number of letters counted.
func (p LetterProfile) Total() int {
	total := 0
	for _, c := range p {
		total += c
	}
	return total
}

// IsEmpty reports whether no letters were counted.
func (p LetterProfile) IsEmpty() bool {
	return p == LetterProfile{}
}

// Map returns the letters present in the profile with their counts. Letters
// with a zero count are omitted.
func (p LetterProfile) Map() map[rune]int {
	out := make(map[rune]int)
	for i, c := range p {
		if c > 0 {
			out[rune('a'+i)] = c
		}
	}
	return out
}

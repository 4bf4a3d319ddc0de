// Package identifiers finds and validates bibliographic identifiers in
// extracted text.
package identifiers

import (
	"regexp"
	"strings"
	"unicode"
)

// candidateRegex matches runs that could be an ISBN once separators are
// stripped: a digit followed by digits, hyphens, or spaces, optionally ending
// in the ISBN-10 check character X.
var candidateRegex = regexp.MustCompile(`\d[\d \-]{8,20}[\dXx]`)

// Find scans text in document order and returns the first checksum-valid
// ISBN, normalized to bare digits (plus a trailing X for ISBN-10). The second
// return is false when no candidate in the text validates.
func Find(text string) (string, bool) {
	for _, candidate := range candidateRegex.FindAllString(text, -1) {
		normalized := Normalize(candidate)
		if Valid(normalized) {
			return normalized, true
		}
	}
	return "", false
}

// Normalize removes hyphens, spaces, and a leading ISBN prefix, keeping only
// digits and the check character X.
func Normalize(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether a normalized string is a checksum-valid ISBN.
// Strings that aren't exactly 10 or 13 characters are never candidates.
func Valid(isbn string) bool {
	switch len(isbn) {
	case 10:
		return ValidISBN10(isbn)
	case 13:
		return ValidISBN13(isbn)
	default:
		return false
	}
}

// ValidISBN10 validates an ISBN-10 checksum.
// ISBN-10 uses modulo 11 with weights 10,9,8,7,6,5,4,3,2,1.
func ValidISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}

	var sum int
	for i, r := range isbn {
		var digit int
		switch {
		case r == 'X' || r == 'x':
			if i != 9 {
				return false // X only valid as last digit
			}
			digit = 10
		case unicode.IsDigit(r):
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidISBN13 validates an ISBN-13 checksum.
// ISBN-13 uses modulo 10 with alternating weights of 1 and 3.
func ValidISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}

	var sum int
	for i, r := range isbn {
		if !unicode.IsDigit(r) {
			return false
		}
		digit := int(r - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	return sum%10 == 0
}

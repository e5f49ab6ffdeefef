package schema

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the case-folded NFC form of s, used for every
// case-insensitive comparison of names, labels and lookups.
//
// A cases.Caser is stateful, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Normalize returns the NFC form of user input.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

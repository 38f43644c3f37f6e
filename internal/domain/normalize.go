package domain

import "strings"

// NormalizeFreeText trims leading/trailing whitespace and collapses internal
// whitespace runs. Used for examiner names and suspension/revocation reasons.
func NormalizeFreeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

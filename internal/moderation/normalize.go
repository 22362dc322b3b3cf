package moderation

import "strings"

// bypassChars is the set of separators users insert to break up prohibited
// words ("b-a-d w.o.r.d"). Whitespace is handled separately.
const bypassChars = "!@#$%^&*()-=+[]{};:'\",./?<>`~\\|"

// stripTable marks every byte that Normalize drops.
var stripTable = func() [256]bool {
	var t [256]bool
	for i := 0; i < len(bypassChars); i++ {
		t[bypassChars[i]] = true
	}
	for _, c := range []byte{' ', '\t', '\n', '\v', '\f', '\r'} {
		t[c] = true
	}
	return t
}()

// Normalize returns the canonical matching form of raw: ASCII letters are
// lower-cased and whitespace plus the bypass characters are removed in a
// single pass. Bytes >= 0x80 pass through untouched, so non-ASCII letters
// are neither folded nor stripped.
//
// The result is only used for matching; callers keep the original text for
// logging and delivery.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if stripTable[c] {
			continue
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

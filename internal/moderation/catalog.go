package moderation

import (
	"strings"
	"sync/atomic"
)

// ProhibitedTerm is a single catalog entry. Text is stored in normalized form.
type ProhibitedTerm struct {
	Text     string `json:"term"`
	Severity int    `json:"severity"`
}

// ReloadResult reports how many entries a Reload accepted and how many it
// dropped because they were empty after normalization.
type ReloadResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Catalog holds the current set of prohibited terms. Readers always see one
// complete snapshot: Reload builds a new map and swaps the pointer, it never
// mutates a published snapshot.
type Catalog struct {
	terms atomic.Pointer[map[string]int] // normalized term -> severity
}

// NewCatalog creates an empty catalog. Lookup on an empty catalog never matches.
func NewCatalog() *Catalog {
	c := &Catalog{}
	empty := make(map[string]int)
	c.terms.Store(&empty)
	return c
}

// Reload replaces the entire term set. Entry text is normalized before it is
// stored; entries that normalize to "" are skipped and counted. Duplicate
// terms keep the severity of the last occurrence.
func (c *Catalog) Reload(entries []ProhibitedTerm) ReloadResult {
	next := make(map[string]int, len(entries))
	var res ReloadResult
	for _, e := range entries {
		text := Normalize(e.Text)
		if text == "" {
			res.Skipped++
			continue
		}
		next[text] = e.Severity
	}
	res.Loaded = len(next)
	c.terms.Store(&next)
	return res
}

// Lookup reports the first term found as a substring of canonical, which must
// already be normalized. Terms are scanned in no particular order: when
// several terms of different severities occur in the same text, any one of
// them may be returned. Callers must not rely on the highest severity winning.
func (c *Catalog) Lookup(canonical string) (ProhibitedTerm, bool) {
	terms := *c.terms.Load()
	if canonical == "" {
		return ProhibitedTerm{}, false
	}
	for text, severity := range terms {
		if strings.Contains(canonical, text) {
			return ProhibitedTerm{Text: text, Severity: severity}, true
		}
	}
	return ProhibitedTerm{}, false
}

// Len returns the number of terms in the current snapshot.
func (c *Catalog) Len() int {
	return len(*c.terms.Load())
}

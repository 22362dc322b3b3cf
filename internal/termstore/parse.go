package termstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/whisper/chatfilter/internal/moderation"
)

// ErrInvalidEntry marks a term-list entry that could not be parsed.
var ErrInvalidEntry = errors.New("termstore: invalid entry")

// ParseTerms parses a comma-separated term list. Each entry is either "term"
// (severity 0) or "term:severity". Blank entries are ignored. Entries with a
// malformed severity are skipped and reported in the joined error; the valid
// subset is always returned.
func ParseTerms(list string) ([]moderation.ProhibitedTerm, error) {
	var (
		terms []moderation.ProhibitedTerm
		errs  []error
	)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		text, sev, hasSev := strings.Cut(item, ":")
		severity := 0
		if hasSev {
			n, err := strconv.Atoi(strings.TrimSpace(sev))
			if err != nil || n < 0 {
				errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidEntry, item))
				continue
			}
			severity = n
		}
		terms = append(terms, moderation.ProhibitedTerm{
			Text:     strings.ToLower(strings.TrimSpace(text)),
			Severity: severity,
		})
	}
	return terms, errors.Join(errs...)
}

// Source yields the current prohibited-term list.
type Source interface {
	Load(ctx context.Context) ([]moderation.ProhibitedTerm, error)
}

// StaticSource serves a term list parsed from configuration.
type StaticSource struct {
	List string
}

// Load parses the configured list.
func (s StaticSource) Load(_ context.Context) ([]moderation.ProhibitedTerm, error) {
	return ParseTerms(s.List)
}

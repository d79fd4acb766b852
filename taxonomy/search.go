package taxonomy

import (
	"strings"

	"github.com/teranos/taxa/errors"
)

// PrefixSentinel switches search text to prefix matching.
const PrefixSentinel = "prefix:"

// ParseSearchText splits the sentinel off raw search text.
// "prefix:rhodobact" yields ("rhodobact", MatchPrefix); anything else is a
// substring search.
func ParseSearchText(raw string) (string, MatchMode, error) {
	text, mode := raw, MatchContains
	if rest, ok := strings.CutPrefix(raw, PrefixSentinel); ok {
		text, mode = rest, MatchPrefix
	}
	if strings.TrimSpace(text) == "" {
		return "", mode, errors.NewInvalidParams("'search_text' must not be empty")
	}
	return text, mode, nil
}

// Matches reports whether name matches text under m, ignoring case.
func (m MatchMode) Matches(name, text string) bool {
	name, text = strings.ToLower(name), strings.ToLower(text)
	if m == MatchPrefix {
		return strings.HasPrefix(name, text)
	}
	return strings.Contains(name, text)
}

// Admits reports whether a taxon passes the rank filter of q.
func (q SearchQuery) Admits(t *Taxon) bool {
	if len(q.Ranks) == 0 {
		return true
	}
	if q.IncludeStrains && t.Strain {
		return true
	}
	for _, r := range q.Ranks {
		if t.Rank == r {
			return true
		}
	}
	return false
}

// SearchOrder is the ordering every SearchIndex must produce.
func SearchOrder(a, b *Taxon) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.ID < b.ID
}

package keyword

import (
	"regexp"
	"sort"
	"strings"
)

// SlugMatcher checks whether a slugified string contains any word from a
// configured list, as a substring. Used for the "worst words" profanity
// tier, where spacing and punctuation tricks should not dodge the match.
type SlugMatcher struct {
	re *regexp.Regexp
}

// NewSlugMatcher compiles the word list in to a single alternation regex.
// Words are matched longest-first so overlapping entries prefer the most
// specific match. An empty list yields a matcher that never matches.
func NewSlugMatcher(words []string) *SlugMatcher {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = Slugify(w)
		if w != "" {
			cleaned = append(cleaned, regexp.QuoteMeta(w))
		}
	}
	if len(cleaned) == 0 {
		return &SlugMatcher{}
	}
	sort.Slice(cleaned, func(i, j int) bool {
		return len(cleaned[i]) > len(cleaned[j])
	})
	return &SlugMatcher{
		re: regexp.MustCompile("(" + strings.Join(cleaned, "|") + ")"),
	}
}

// Match returns the first configured word contained in the slug, or an
// empty string.
func (m *SlugMatcher) Match(slug string) string {
	if m == nil || m.re == nil {
		return ""
	}
	return m.re.FindString(slug)
}

package extractor

import (
	"regexp"
	"strings"
)

// tokenPattern splits text into words and hyphenated compounds, matching
// spec.md §4.3's "\w+-\w+|\w+" token shape.
var tokenPattern = regexp.MustCompile(`\w+-\w+|\w+`)

// baseStopWords ships with the extractor; callers may add more via
// TextFilter.ExtraStopWords.
var baseStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true,
}

// TextFilter lowercases, tokenizes, then drops stop words and
// single-character tokens, per spec.md §4.3's optional text-content
// filter. A zero-value TextFilter applies only the base stop-word list.
type TextFilter struct {
	ExtraStopWords []string
}

// Apply tokenizes text and returns the filtered tokens joined by a single
// space, the shape downstream callers store as Fragment.TextContent.
func (f TextFilter) Apply(text string) string {
	extra := make(map[string]bool, len(f.ExtraStopWords))
	for _, w := range f.ExtraStopWords {
		extra[strings.ToLower(w)] = true
	}

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 1 {
			continue
		}
		if baseStopWords[tok] || extra[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

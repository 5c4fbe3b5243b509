package search

import (
	"regexp"
	"strings"

	"github.com/platinummonkey/docsapi/pkg/api"
)

var phrasePattern = regexp.MustCompile(`"([^"]*)"`)

// ParseQuery splits raw user input into required terms, quoted phrases and
// excluded (-prefixed) words. Lone operators and empty quotes are dropped.
func ParseQuery(raw string) api.SearchQuery {
	var q api.SearchQuery

	for _, match := range phrasePattern.FindAllStringSubmatch(raw, -1) {
		phrase := strings.Join(strings.Fields(match[1]), " ")
		if phrase != "" {
			q.Phrases = append(q.Phrases, phrase)
		}
	}
	rest := phrasePattern.ReplaceAllString(raw, " ")
	// unbalanced quote
	rest = strings.ReplaceAll(rest, `"`, " ")

	for _, word := range strings.Fields(rest) {
		if strings.HasPrefix(word, "-") {
			if excluded := strings.TrimLeft(word, "-"); excluded != "" {
				q.Excluded = append(q.Excluded, excluded)
			}
			continue
		}
		q.Terms = append(q.Terms, word)
	}
	return q
}

// Words returns every term and phrase that must match
func Words(q api.SearchQuery) []string {
	words := make([]string, 0, len(q.Terms)+len(q.Phrases))
	words = append(words, q.Phrases...)
	return append(words, q.Terms...)
}

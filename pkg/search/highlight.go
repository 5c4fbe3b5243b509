package search

import (
	"html"
	"regexp"
	"sort"
	"strings"
)

const (
	// HighlightWindow is the maximum length of highlighted text, in runes
	HighlightWindow = 200

	highlightOpen  = `<span class="highlighted">`
	highlightClose = `</span>`
)

// Highlight cuts a window of text starting at the first matching word and
// wraps every occurrence of words in it. Matching runs on the raw text and
// each segment is HTML-escaped on its own, so words never match inside an
// entity.
func Highlight(text string, words []string) string {
	runes := []rune(text)
	pattern := wordPattern(words)

	start := 0
	if pattern != nil {
		if loc := pattern.FindStringIndex(text); loc != nil {
			start = len([]rune(text[:loc[0]]))
		}
	}
	end := start + HighlightWindow
	if end > len(runes) {
		end = len(runes)
	}
	window := string(runes[start:end])

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	last := 0
	if pattern != nil {
		for _, loc := range pattern.FindAllStringIndex(window, -1) {
			b.WriteString(html.EscapeString(window[last:loc[0]]))
			b.WriteString(highlightOpen)
			b.WriteString(html.EscapeString(window[loc[0]:loc[1]]))
			b.WriteString(highlightClose)
			last = loc[1]
		}
	}
	b.WriteString(html.EscapeString(window[last:]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

// wordPattern matches any of words case-insensitively, longest first so that
// phrases win over their own terms.
func wordPattern(words []string) *regexp.Regexp {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(w))
	}
	if len(parts) == 0 {
		return nil
	}
	sort.SliceStable(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

// Package filter redacts admin-configured banned words from message text.
package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Apply replaces every case-insensitive occurrence of each banned word with
// asterisks, one per rune of the matched text. Words are applied in order,
// each pass running over the output of the previous one. Asterisks cannot
// match a word made of letters, so a later word never re-matches an earlier
// redaction.
func Apply(text string, words []string) string {
	if text == "" {
		return text
	}

	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}

		// Words are literal text, never patterns
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))
		text = re.ReplaceAllStringFunc(text, mask)
	}

	return text
}

// ParseWords splits the comma-separated filter_words setting into words.
func ParseWords(setting string) []string {
	if strings.TrimSpace(setting) == "" {
		return nil
	}

	parts := strings.Split(setting, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.TrimSpace(p); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func mask(match string) string {
	return strings.Repeat("*", utf8.RuneCountInString(match))
}

// Package moderation censors forbidden words in outbound message text.
// Censoring runs once on the canonical original text before persistence;
// cached translations are derived data and are never re-censored.
package moderation

import (
	"bufio"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed words/*.txt
var wordFiles embed.FS

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. An empty list yields a pass-through moderator.
func NewModerator(words []string, replacement rune) (Moderator, error) {
	if len(words) == 0 {
		return Moderator{replacement: replacement}, nil
	}
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if normalized := normalize(word); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement}, nil
}

// NewDefaultModerator loads the embedded per-language word lists.
func NewDefaultModerator(replacement rune) (Moderator, error) {
	entries, err := wordFiles.ReadDir("words")
	if err != nil {
		return Moderator{}, err
	}
	var words []string
	for _, entry := range entries {
		f, err := wordFiles.Open("words/" + entry.Name())
		if err != nil {
			return Moderator{}, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				words = append(words, line)
			}
		}
		_ = f.Close()
		if err := scanner.Err(); err != nil {
			return Moderator{}, err
		}
	}
	return NewModerator(words, replacement)
}

// Censor replaces every match with the replacement rune, preserving all
// spacing and punctuation of the original.
func (m Moderator) Censor(text string) string {
	if m.matcher == nil {
		return text
	}

	origRunes := []rune(text)
	normalized, origIdx := normalizeIndexed(origRunes)
	if len(normalized) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes)
}

// normalizeIndexed lowercases and strips separators while remembering each
// kept rune's position in the original, so matches map back onto it.
func normalizeIndexed(origRunes []rune) ([]rune, []int) {
	normalized := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		if isSeparator(r) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

func normalize(word string) []rune {
	out := make([]rune, 0, len(word))
	for _, r := range word {
		if isSeparator(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tokenSplitRegex = regexp.MustCompile(`[\s\-_,./]+`)
)

// finalForms maps Hebrew final letter forms to their standard forms
var finalForms = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
}

// NormalizeHebrew canonicalizes free text for comparison:
//   - strips niqqud and other diacritical marks (U+0591 to U+05C7)
//   - folds final letter forms to regular forms
//   - applies NFKC compatibility normalization
//   - lowercases (for any English mixed in)
//   - collapses whitespace runs
//
// Idempotent; empty input yields an empty string.
func NormalizeHebrew(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 0x0591 && r <= 0x05C7 {
			continue
		}
		if regular, ok := finalForms[r]; ok {
			r = regular
		}
		b.WriteRune(r)
	}

	result := norm.NFKC.String(b.String())
	result = strings.ToLower(result)
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Tokenize splits text into comparable tokens: normalizes it, splits on
// whitespace and common punctuation, and drops tokens shorter than 2 runes.
func Tokenize(text string) []string {
	normalized := NormalizeHebrew(text)
	if normalized == "" {
		return nil
	}

	parts := tokenSplitRegex.Split(normalized, -1)
	tokens := make([]string, 0, len(parts))
	for _, t := range parts {
		if utf8.RuneCountInString(t) >= 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

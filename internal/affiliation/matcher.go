// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation normalizes institution names and scores how similar
// two affiliation strings are. It is deterministic and makes no network calls.
package affiliation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum similarity BestMatch accepts by default.
const DefaultThreshold = 0.6

var (
	stopPhrases = regexp.MustCompile(`\b(university of|university|college|institute|school)\b`)
	stopThe     = regexp.MustCompile(`\bthe\b`)
)

// Matcher normalizes affiliations against an alias table.
type Matcher struct {
	aliases []foldedAlias
}

type foldedAlias struct {
	canonical string
	variants  []string
}

// NewMatcher builds a matcher from an alias table. Variants are compared
// case- and accent-insensitively.
func NewMatcher(aliases []Alias) *Matcher {
	m := &Matcher{aliases: make([]foldedAlias, 0, len(aliases))}
	for _, a := range aliases {
		fa := foldedAlias{canonical: a.Canonical}
		for _, v := range a.Variants {
			if f := fold(v); f != "" {
				fa.variants = append(fa.variants, f)
			}
		}
		m.aliases = append(m.aliases, fa)
	}
	return m
}

// Default is the matcher over DefaultAliases.
var Default = NewMatcher(DefaultAliases)

// Normalize returns the canonical key when raw contains a known variant.
// Variants of up to four characters must appear as whole words. Otherwise
// it lowercases raw, drops generic institutional words and "the", and
// collapses whitespace.
func (m *Matcher) Normalize(raw string) string {
	lower := fold(raw)
	if lower == "" {
		return ""
	}

	for _, a := range m.aliases {
		for _, v := range a.variants {
			if containsVariant(lower, v) {
				return a.canonical
			}
		}
	}

	s := stopPhrases.ReplaceAllString(lower, "")
	s = stopThe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two affiliations in [0,1]: 1.0 for equal normalized
// forms, 0.8 when one contains the other, otherwise the share of common
// words longer than two characters over the larger word set. Empty input
// scores 0. The measure is symmetric.
func (m *Matcher) Similarity(a, b string) float64 {
	na, nb := m.Normalize(a), m.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.8
	}

	wa, wb := words(na), words(nb)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	common := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(wa), len(wb)))
}

// BestMatch returns the index of the affiliation most similar to target
// and its score, or -1 when none reaches threshold. Ties keep the earliest.
func (m *Matcher) BestMatch(affiliations []string, target string, threshold float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, a := range affiliations {
		score := m.Similarity(a, target)
		if score > bestScore && score >= threshold {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// Normalize calls Default.Normalize.
func Normalize(raw string) string { return Default.Normalize(raw) }

// Similarity calls Default.Similarity.
func Similarity(a, b string) float64 { return Default.Similarity(a, b) }

// BestMatch calls Default.BestMatch.
func BestMatch(affiliations []string, target string, threshold float64) (int, float64) {
	return Default.BestMatch(affiliations, target, threshold)
}

// shortVariant is the length up to which a variant must match a whole word,
// so "gt" does not hit "washington".
const shortVariant = 4

func containsVariant(s, v string) bool {
	if utf8.RuneCountInString(v) > shortVariant {
		return strings.Contains(s, v)
	}
	for off := 0; off <= len(s)-len(v); {
		i := strings.Index(s[off:], v)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(v)
		if !wordRuneBefore(s, start) && !wordRuneAfter(s, end) {
			return true
		}
		off = start + 1
	}
	return false
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func words(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

// fold lowercases s and strips diacritics ("Zürich" → "zurich").
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Fold exposes the accent- and case-folding used for matching, for callers
// that build lookup keys from names.
func Fold(s string) string { return fold(s) }

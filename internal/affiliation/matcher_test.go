// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Massachusetts Institute of Technology", "MIT"},
		{"mit", "MIT"},
		{"CSAIL, MIT, Cambridge MA", "MIT"},
		{"Université de Montréal", "Montreal"},
		{"ETH Zürich", "ETH"},
		{"University of Washington", "UW"},
		{"The University of Somewhere", "somewhere"},
		{"  Somewhere   Research \t Lab ", "somewhere research lab"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_ShortVariantNeedsWholeWord(t *testing.T) {
	// "gt" is a Georgia Tech variant and appears inside "washington".
	assert.Equal(t, "UW", Normalize("Washington State"))
	assert.Equal(t, "Georgia Tech", Normalize("GT, Atlanta"))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"alias equal", "MIT", "Massachusetts Institute of Technology", 1.0},
		{"containment", "Somewhere Research Lab", "Somewhere", 0.8},
		{"token overlap", "Department of Computer Science, Acme", "Acme Computer Vision Lab", 0.5},
		{"empty", "", "MIT", 0},
		{"only stop words", "The", "MIT", 0},
		{"short tokens only", "ab cd", "ef gh", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	inputs := []string{
		"MIT",
		"Massachusetts Institute of Technology",
		"Department of Computer Science, Acme",
		"Acme Computer Vision Lab",
		"Somewhere",
		"The University of Somewhere",
		"Université de Montréal",
		"",
		"ab cd",
	}
	for _, a := range inputs {
		for _, b := range inputs {
			assert.Equal(t, Similarity(a, b), Similarity(b, a), "%q vs %q", a, b)
		}
	}
}

func TestSimilarity_MITThreshold(t *testing.T) {
	assert.GreaterOrEqual(t, Similarity("MIT", "Massachusetts Institute of Technology"), DefaultThreshold)
}

func TestBestMatch(t *testing.T) {
	affs := []string{"Acme Labs", "Stanford University", "Stanford"}

	idx, score := BestMatch(affs, "Stanford", DefaultThreshold)
	assert.Equal(t, 1, idx, "first of equal scores wins")
	assert.Equal(t, 1.0, score)

	idx, _ = BestMatch([]string{"Acme"}, "Stanford", DefaultThreshold)
	assert.Equal(t, -1, idx)

	idx, _ = BestMatch(nil, "Stanford", DefaultThreshold)
	assert.Equal(t, -1, idx)
}

func TestBestMatch_Threshold(t *testing.T) {
	affs := []string{"Acme Computer Vision Lab"}

	idx, _ := BestMatch(affs, "Department of Computer Science, Acme", DefaultThreshold)
	assert.Equal(t, -1, idx)

	idx, score := BestMatch(affs, "Department of Computer Science, Acme", 0.5)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestBestMatch_Deterministic(t *testing.T) {
	affs := []string{"Harvard", "Yale University", "MIT CSAIL", "Massachusetts Institute of Technology"}
	first, firstScore := BestMatch(affs, "MIT", DefaultThreshold)
	for range 20 {
		idx, score := BestMatch(affs, "MIT", DefaultThreshold)
		assert.Equal(t, first, idx)
		assert.Equal(t, firstScore, score)
	}
	assert.Equal(t, 2, first)
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`aliases:
  - canonical: Acme
    variants: [Acme Institute of Technology, AIT]
  - canonical: Zenith
    variants: [Zenith College]
`), 0o644))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)
	require.Len(t, aliases, 2)

	m := NewMatcher(aliases)
	assert.Equal(t, "Acme", m.Normalize("AIT, Springfield"))
	assert.Equal(t, "Zenith", m.Normalize("zenith college"))
	assert.Equal(t, "stanford", m.Normalize("Stanford University"), "built-in table not consulted")
	assert.Equal(t, 1.0, m.Similarity("Acme Institute of Technology", "AIT"))
}

func TestLoadAliases_Errors(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  - variants: [X]\n"), 0o644))
	_, err = LoadAliases(path)
	assert.ErrorContains(t, err, "no canonical name")
}

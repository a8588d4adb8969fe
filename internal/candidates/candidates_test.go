// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package candidates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONWrapped(t *testing.T) {
	data := []byte(`{"professors": [
		{"name": " Fei-Fei Li ", "affiliation": "Stanford University", "areas": ["vision", "ai"],
		 "publications": {"cvpr": {"2023": 2.5, "2024": 1}}, "scholarid": "abc123",
		 "dblp": "https://dblp.org/pid/79/2528.html"}
	]}`)
	cs, err := Decode(data, JSON)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	c := cs[0]
	assert.Equal(t, "Fei-Fei Li", c.Name)
	assert.Equal(t, []string{"vision", "ai"}, c.Areas)
	assert.InDelta(t, 2.5, c.Publications["cvpr"]["2023"], 1e-9)
	assert.Equal(t, "abc123", c.ScholarID)
	assert.Equal(t, "https://dblp.org/pid/79/2528.html", c.DBLP)
}

func TestDecodeJSONArray(t *testing.T) {
	cs, err := Decode([]byte(`[{"name": "A"}, {"name": "B", "affiliation": "CMU"}]`), JSON)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "CMU", cs[1].Affiliation)
}

func TestDecodeYAML(t *testing.T) {
	wrapped := `
professors:
  - name: Yann LeCun
    affiliation: New York University
    areas: [ai]
    publications:
      icml:
        2022: 1.5
`
	cs, err := Decode([]byte(wrapped), YAML)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "Yann LeCun", cs[0].Name)
	assert.InDelta(t, 1.5, cs[0].Publications["icml"]["2022"], 1e-9)

	bare := `
- name: A
- name: B
`
	cs, err = Decode([]byte(bare), YAML)
	require.NoError(t, err)
	assert.Len(t, cs, 2)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`[{"affiliation": "MIT"}]`), JSON)
	assert.ErrorContains(t, err, "candidate 0 has no name")

	_, err = Decode([]byte(`{"professors": [`), JSON)
	assert.ErrorContains(t, err, "parsing candidates JSON")

	_, err = Decode([]byte("a: [b"), YAML)
	assert.ErrorContains(t, err, "parsing candidates YAML")

	_, err = Decode([]byte(`[]`), Format("csv"))
	assert.Error(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	cs, err := Decode([]byte("  \n"), JSON)
	require.NoError(t, err)
	assert.Empty(t, cs)

	cs, err = Decode(nil, YAML)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.yml")
	require.NoError(t, os.WriteFile(path, []byte("- name: Z\n"), 0o644))

	cs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "Z", cs[0].Name)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, YAML, FormatFor("x.YAML"))
	assert.Equal(t, YAML, FormatFor("x.yml"))
	assert.Equal(t, JSON, FormatFor("x.json"))
	assert.Equal(t, JSON, FormatFor("x"))
}

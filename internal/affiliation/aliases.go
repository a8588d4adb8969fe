// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Alias maps one canonical institution key to its known name variants.
type Alias struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// DefaultAliases is the built-in institution table. Order matters: the
// first variant found in a raw affiliation wins.
var DefaultAliases = []Alias{
	// North America
	{"MIT", []string{"Massachusetts Institute of Technology", "MIT", "M.I.T."}},
	{"Stanford", []string{"Stanford University", "Stanford"}},
	{"CMU", []string{"Carnegie Mellon", "CMU", "Carnegie Mellon University"}},
	{"Berkeley", []string{"UC Berkeley", "UCB", "University of California, Berkeley", "Berkeley"}},
	{"UCLA", []string{"UCLA", "University of California, Los Angeles"}},
	{"UCSD", []string{"UCSD", "UC San Diego", "University of California, San Diego"}},
	{"Harvard", []string{"Harvard University", "Harvard"}},
	{"Yale", []string{"Yale University", "Yale"}},
	{"Princeton", []string{"Princeton University", "Princeton"}},
	{"Cornell", []string{"Cornell University", "Cornell"}},
	{"Columbia", []string{"Columbia University", "Columbia"}},
	{"UPenn", []string{"University of Pennsylvania", "UPenn", "Penn"}},
	{"Caltech", []string{"California Institute of Technology", "Caltech"}},
	{"Georgia Tech", []string{"Georgia Institute of Technology", "Georgia Tech", "GT"}},
	{"UIUC", []string{"University of Illinois", "UIUC", "Illinois"}},
	{"UMich", []string{"University of Michigan", "UMich", "Michigan"}},
	{"UW", []string{"University of Washington", "UW", "Washington"}},
	{"UT Austin", []string{"University of Texas at Austin", "UT Austin", "Texas"}},
	{"UofT", []string{"University of Toronto", "Toronto", "U of T", "UofT"}},
	{"McGill", []string{"McGill University", "McGill"}},
	{"UBC", []string{"University of British Columbia", "British Columbia", "UBC"}},
	{"Waterloo", []string{"University of Waterloo", "Waterloo", "UW"}},
	{"Montreal", []string{"Université de Montréal", "University of Montreal", "UdeM"}},
	{"Alberta", []string{"University of Alberta", "Alberta", "UAlberta"}},
	{"McMaster", []string{"McMaster University", "McMaster"}},
	{"Queens", []string{"Queen's University", "Queens University", "Queens"}},

	// Europe
	{"Oxford", []string{"University of Oxford", "Oxford"}},
	{"Cambridge", []string{"University of Cambridge", "Cambridge"}},
	{"Imperial", []string{"Imperial College London", "Imperial College", "Imperial"}},
	{"UCL", []string{"University College London", "UCL"}},
	{"Edinburgh", []string{"University of Edinburgh", "Edinburgh"}},
	{"ETH", []string{"ETH Zurich", "ETH Zürich", "Swiss Federal Institute of Technology"}},
	{"EPFL", []string{"EPFL", "École Polytechnique Fédérale de Lausanne"}},
	{"TUM", []string{"Technical University of Munich", "TUM", "TU Munich"}},

	// Asia
	{"Tsinghua", []string{"Tsinghua University", "Tsinghua"}},
	{"Peking", []string{"Peking University", "PKU"}},
	{"NUS", []string{"National University of Singapore", "NUS"}},
	{"NTU Singapore", []string{"Nanyang Technological University", "NTU"}},
	{"Tokyo", []string{"University of Tokyo", "Tokyo", "UTokyo"}},
	{"KAIST", []string{"KAIST", "Korea Advanced Institute of Science and Technology"}},
}

// aliasFile is the on-disk shape of an alias table.
type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// LoadAliases reads an alias table from a YAML file of the form
//
//	aliases:
//	  - canonical: MIT
//	    variants: [Massachusetts Institute of Technology, MIT]
func LoadAliases(path string) ([]Alias, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias file: %w", err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}

	for i, a := range f.Aliases {
		if a.Canonical == "" {
			return nil, fmt.Errorf("alias %d in %s has no canonical name", i, path)
		}
	}
	return f.Aliases, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperSource tags where a paper record came from.
type PaperSource string

const (
	SourceLocalSynthesis PaperSource = "local-synthesis"
	SourceUpstream       PaperSource = "upstream-api"
	SourceCacheHit       PaperSource = "cache-hit"
	SourceMerged         PaperSource = "upstream+synthesis-merge"
)

// Paper is one publication attached to a candidate. The title may be a
// synthetic placeholder when no real title is known.
type Paper struct {
	Title string `json:"title" yaml:"title"`

	Year int `json:"year" yaml:"year"`

	// Venue is a short venue code ("cvpr") or the free-text venue returned upstream.
	Venue string `json:"venue" yaml:"venue"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	Source PaperSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dblp

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/profmatch/pkg/types"
)

// DBLP search JSON structures.
type searchResponse struct {
	Result struct {
		Hits struct {
			Hit []searchHit `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type searchHit struct {
	Info *hitInfo `json:"info"`
}

type hitInfo struct {
	Title     flexString `json:"title"`
	Year      flexString `json:"year"`
	Venue     flexString `json:"venue"`
	Journal   flexString `json:"journal"`
	Booktitle flexString `json:"booktitle"`
	Authors   struct {
		Author flexAuthors `json:"author"`
	} `json:"authors"`
}

// flexString accepts a string, a number, an array (first element wins) or
// an object carrying a "text" field.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	*f = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) > 0 {
			*f = items[0]
		}
	case '{':
		var obj struct {
			Text flexString `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = obj.Text
	default:
		*f = flexString(data)
	}
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

// flexAuthors accepts a single author (string or {"text": ...}) or an array of them.
type flexAuthors []string

func (a *flexAuthors) UnmarshalJSON(data []byte) error {
	*a = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var items []flexString
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		var one flexString
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		items = []flexString{one}
	}

	for _, it := range items {
		if s := it.String(); s != "" {
			*a = append(*a, s)
		}
	}
	return nil
}

// DBLP person XML structures. Each <r> wraps exactly one publication
// element (article, inproceedings, ...).
type personXML struct {
	Name    string      `xml:"name,attr"`
	Records []recordXML `xml:"r"`
}

type recordXML struct {
	Pub pubXML `xml:",any"`
}

type pubXML struct {
	XMLName   xml.Name
	Authors   []string `xml:"author"`
	Title     innerXML `xml:"title"`
	Year      string   `xml:"year"`
	Journal   string   `xml:"journal"`
	Booktitle string   `xml:"booktitle"`
}

type innerXML struct {
	Inner string `xml:",innerxml"`
}

func parsePerson(r io.Reader) ([]types.Paper, error) {
	var person personXML
	dec := xml.NewDecoder(r)
	// DBLP declares US-ASCII.
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&person); err != nil {
		return nil, err
	}

	var papers []types.Paper
	for _, rec := range person.Records {
		pub := rec.Pub
		title := cleanText(pub.Title.Inner)
		year, err := strconv.Atoi(strings.TrimSpace(pub.Year))
		if title == "" || err != nil {
			continue
		}
		venue := strings.TrimSpace(pub.Journal)
		if venue == "" {
			venue = strings.TrimSpace(pub.Booktitle)
		}
		authors := make([]string, 0, len(pub.Authors))
		for _, a := range pub.Authors {
			if a = strings.TrimSpace(a); a != "" {
				authors = append(authors, a)
			}
		}
		papers = append(papers, types.Paper{
			Title:   title,
			Year:    year,
			Venue:   venue,
			Authors: authors,
			Source:  types.SourceUpstream,
		})
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].Year > papers[j].Year
	})
	return papers, nil
}

// cleanText strips inline markup (<i>, <sub>, ...) and entities from a
// title and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dblp is a client for the DBLP bibliography: name search grouped
// by author, publication lists by author id, and profile URL resolution.
//
// Malformed payloads are treated as zero results. Non-2xx responses come
// back as *httputil.StatusError so callers can tell throttling (429) apart
// from other failures.
package dblp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/pdiddy/profmatch/internal/httputil"
	"github.com/pdiddy/profmatch/pkg/types"
)

// Endpoints. Declared as vars so tests can substitute an httptest server.
var (
	searchBase = "https://dblp.org/search/publ/api"
	pidBase    = "https://dblp.org/pid/"
)

const (
	// DefaultTimeout is the per-call timeout.
	DefaultTimeout = 30 * time.Second

	maxHits = 100
	service = "DBLP"
)

var pidPattern = regexp.MustCompile(`/pid/([^.]+)`)

// Author is one author group built from search hits. Affiliation is empty
// because the search API does not return it.
type Author struct {
	Name        string
	Affiliation string
	Papers      []types.Paper
}

// Client talks to DBLP.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	// MaxRetries is passed to httputil.DoWithRetry. Negative disables the
	// in-client retry so throttling surfaces to the caller.
	MaxRetries int

	Logger *slog.Logger
}

// New returns a client using cfg's timeout and user agent.
func New(cfg types.HTTPConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("DBLP request: %w", err)
	}
	if err := httputil.CheckResponse(service, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Search runs a name search and returns one paper per hit, in hit order.
func (c *Client) Search(ctx context.Context, name string) ([]types.Paper, error) {
	params := url.Values{
		"q":      {"author:" + name},
		"format": {"json"},
		"h":      {strconv.Itoa(maxHits)},
	}
	resp, err := c.get(ctx, searchBase+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading DBLP response: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		c.logger().Warn("malformed DBLP search payload", "name", name, "error", err)
		return nil, nil
	}

	var papers []types.Paper
	for _, hit := range sr.Result.Hits.Hit {
		info := hit.Info
		if info == nil {
			continue
		}
		title := cleanText(info.Title.String())
		if title == "" {
			continue
		}
		year, _ := strconv.Atoi(info.Year.String())
		venue := info.Venue.String()
		if venue == "" {
			venue = info.Journal.String()
		}
		if venue == "" {
			venue = info.Booktitle.String()
		}
		papers = append(papers, types.Paper{
			Title:   title,
			Year:    year,
			Venue:   venue,
			Authors: info.Authors.Author,
			Source:  types.SourceUpstream,
		})
	}
	return papers, nil
}

// SearchAuthors runs a name search and groups the hits by author, largest
// group first.
func (c *Client) SearchAuthors(ctx context.Context, name string) ([]Author, error) {
	papers, err := c.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		c.logger().Debug("no DBLP results", "name", name)
	}
	return GroupByAuthor(papers), nil
}

// GroupByAuthor builds one group per distinct author string, each holding
// every paper that author appears on. Groups are ordered by paper count
// descending; equal counts keep first-appearance order.
func GroupByAuthor(papers []types.Paper) []Author {
	index := make(map[string]int)
	var groups []Author
	for _, p := range papers {
		for _, a := range p.Authors {
			if a == "" {
				continue
			}
			i, ok := index[a]
			if !ok {
				i = len(groups)
				index[a] = i
				groups = append(groups, Author{Name: a})
			}
			groups[i].Papers = append(groups[i].Papers, p)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Papers) > len(groups[j].Papers)
	})
	return groups
}

// FetchByPID returns the publication list of the author with DBLP id pid
// (e.g. "01/2345"), newest first.
func (c *Client) FetchByPID(ctx context.Context, pid string) ([]types.Paper, error) {
	if pid == "" {
		return nil, fmt.Errorf("empty DBLP author id")
	}
	resp, err := c.get(ctx, pidBase+pid+".xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	papers, err := parsePerson(resp.Body)
	if err != nil {
		c.logger().Warn("malformed DBLP person payload", "pid", pid, "error", err)
		return nil, nil
	}
	return papers, nil
}

// ResolveProfile follows redirects from a profile URL and returns the URL
// it finally lands on.
func (c *Client) ResolveProfile(ctx context.Context, profileURL string) (string, error) {
	resp, err := c.get(ctx, profileURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.Request == nil || resp.Request.URL == nil {
		return profileURL, nil
	}
	return resp.Request.URL.String(), nil
}

// ExtractPID pulls the author id out of a DBLP profile URL
// ("https://dblp.org/pid/01/2345.html" → "01/2345"). It returns "" when the
// URL carries no id.
func ExtractPID(profileURL string) string {
	m := pidPattern.FindStringSubmatch(profileURL)
	if m == nil {
		return ""
	}
	return m[1]
}

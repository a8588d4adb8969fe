// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publication

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/profmatch/internal/cache"
	"github.com/pdiddy/profmatch/internal/dblp"
	"github.com/pdiddy/profmatch/pkg/types"
)

// ErrNoProfile is returned by Warm for a candidate without a usable DBLP profile.
var ErrNoProfile = errors.New("no DBLP profile")

// Warm fetches the publication list behind c's DBLP profile URL and stores
// it in the scholar cache under c's alternate id. Profile URLs without an
// author id are resolved by following redirects; the redirect is recorded
// so later runs skip the resolution. It returns the number of papers stored.
func (s *Service) Warm(ctx context.Context, c types.Candidate) (int, error) {
	if s.Profiles == nil || s.Scholar == nil {
		return 0, fmt.Errorf("warming %s: profile source or scholar cache not configured", c.Name)
	}
	if c.DBLP == "" {
		return 0, fmt.Errorf("warming %s: %w", c.Name, ErrNoProfile)
	}

	profile := c.DBLP
	if s.Redirects != nil {
		if target, ok := s.Redirects.Get(profile); ok {
			profile = target
		}
	}

	pid := dblp.ExtractPID(profile)
	if pid == "" {
		var resolved string
		err := s.run(ctx, func(ctx context.Context) error {
			var err error
			resolved, err = s.Profiles.ResolveProfile(ctx, profile)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("resolving profile %s: %w", profile, err)
		}
		if resolved != c.DBLP && s.Redirects != nil {
			s.Redirects.Set(c.DBLP, resolved)
		}
		pid = dblp.ExtractPID(resolved)
	}
	if pid == "" {
		return 0, fmt.Errorf("warming %s from %s: %w", c.Name, c.DBLP, ErrNoProfile)
	}

	var papers []types.Paper
	err := s.run(ctx, func(ctx context.Context) error {
		var err error
		papers, err = s.Profiles.FetchByPID(ctx, pid)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetching DBLP author %s: %w", pid, err)
	}
	if len(papers) == 0 {
		return 0, nil
	}

	id := c.ScholarID
	if id == "" {
		id = pid
	}
	s.Scholar.Set(cache.ScholarKey(id), papers)
	stored := min(len(papers), cache.MaxCachedPapers)
	s.logger().Info("scholar cache warmed", "candidate", c.Name, "pid", pid, "papers", stored)
	return stored, nil
}

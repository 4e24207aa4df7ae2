// Package crawl implements paginated enumeration runs over the post listing
// endpoint: scanning a page range concurrently, resolving post authors
// through the single-flight dedup cache, and reporting per-page results in
// page order.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/circletools/circle-batch-client/pkg/batch"
	"github.com/circletools/circle-batch-client/pkg/classify"
	"github.com/circletools/circle-batch-client/pkg/client"
	"github.com/circletools/circle-batch-client/pkg/dedup"
)

// Config holds search run configuration.
type Config struct {
	// Workers is the number of parallel page fetches.
	Workers int

	// Timeout per page fetch, including user lookups triggered by it.
	Timeout time.Duration

	// SubmitInterval staggers page issuance.
	SubmitInterval time.Duration
}

// DefaultConfig returns safe defaults for the listing endpoint.
func DefaultConfig() Config {
	return Config{
		Workers:        10,
		Timeout:        30 * time.Second,
		SubmitInterval: 100 * time.Millisecond,
	}
}

// Match is one user found by a keyword search, with the page it surfaced on.
type Match struct {
	User      client.User
	FoundPage int
}

// Result is the outcome of one search run.
type Result struct {
	Acc *batch.Accumulator

	// Matches lists unique users whose name contains the keyword, in the
	// order they were first seen.
	Matches []Match

	// UsersFetched is how many distinct user records were loaded; with the
	// single-flight cache this is at most one fetch per distinct author.
	UsersFetched int
}

// Searcher runs keyword searches over a page range.
type Searcher struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// NewSearcher creates a searcher. Configuration errors fail fast.
func NewSearcher(c *client.Client, cfg Config) (*Searcher, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0 (got %d)", cfg.Workers)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Searcher{
		client: c,
		config: cfg,
		logger: log.With().Str("component", "crawl-searcher").Logger(),
	}, nil
}

// Search scans maxPages pages starting at firstPage for users whose name
// contains keyword. Every page yields exactly one classified result to the
// recorder, in page order; empty pages classify as EndOfData. The user cache
// lives for this run only.
func (s *Searcher) Search(ctx context.Context, firstPage, maxPages int, keyword string, recorder batch.Recorder) (*Result, error) {
	if maxPages <= 0 {
		return nil, fmt.Errorf("max pages must be > 0 (got %d)", maxPages)
	}

	users := dedup.New(func(ctx context.Context, id int64) (*client.User, error) {
		return s.client.GetUser(ctx, id)
	})

	var (
		mu      sync.Mutex
		matches []Match
		seen    = make(map[int64]bool)
	)

	unit := func(ctx context.Context, key batch.TaskKey) batch.RawResult {
		page, err := s.client.ListPosts(ctx, int(key), "")
		if err != nil {
			return batch.RawResult{Err: err}
		}

		found := 0
		for i := range page.Posts {
			authorID := page.Posts[i].AuthorID()
			if authorID == 0 {
				continue
			}

			user, err := users.Get(ctx, authorID)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Int64("user_id", authorID).
					Int("page", page.Page).
					Msg("User lookup failed")
				continue
			}

			if keyword != "" && !strings.Contains(user.Name(), keyword) {
				continue
			}

			mu.Lock()
			if !seen[user.ID] {
				seen[user.ID] = true
				matches = append(matches, Match{User: *user, FoundPage: page.Page})
				found++
			}
			mu.Unlock()
		}

		return batch.RawResult{
			Code:    classify.CodeSuccess,
			Message: fmt.Sprintf("%d posts, %d new matches", len(page.Posts), found),
			Payload: page.Raw,
		}
	}

	pool, err := batch.New(batch.Config{
		Workers:        s.config.Workers,
		CallTimeout:    s.config.Timeout,
		SubmitInterval: s.config.SubmitInterval,
	}, unit, classify.Listing, recorder)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("first_page", firstPage).
		Int("max_pages", maxPages).
		Str("keyword", keyword).
		Msg("Starting search run")

	acc, err := pool.Run(ctx, batch.Keys(batch.TaskKey(firstPage), batch.TaskKey(firstPage+maxPages-1)))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("matches", len(matches)).
		Int("users_fetched", users.Len()).
		Int("pages_ok", acc.Success).
		Int("pages_failed", acc.Failed).
		Msg("Search run complete")

	return &Result{
		Acc:          acc,
		Matches:      matches,
		UsersFetched: users.Len(),
	}, nil
}

// Package github implements the review pipeline's repository port against the
// GitHub REST API using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"

	"github.com/prsentry/internal/review"
	"github.com/prsentry/pkg/models"
)

// Compile-time check that Client satisfies the orchestrator's port.
var _ review.RepoClient = (*Client)(nil)

// Client talks to the GitHub REST API with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub client authenticated with a personal access
// token.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	return &Client{gh: gh.NewClient(rateLimitClient).WithAuthToken(token)}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// GetPullRequest fetches one pull request's reviewability facts.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s#%d: %w", owner, repo, number, err)
	}
	return mapPullRequest(pr), nil
}

// ListOpenPullRequests lists the repository's open pull requests, most
// recently updated first. Used by the polling trigger.
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, repo string) ([]models.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []models.PullRequest
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing open pull requests for %s/%s (page %d): %w", owner, repo, opts.Page, err)
		}
		for _, pr := range prs {
			all = append(all, *mapPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListChangedFiles fetches the pull request's changed files with their
// unified-diff patches, handling pagination.
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.ChangedFile, error) {
	opts := &gh.ListOptions{PerPage: 100}

	var files []models.ChangedFile
	for {
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}
		for _, f := range page {
			files = append(files, models.ChangedFile{
				Path:      f.GetFilename(),
				Kind:      mapChangeKind(f.GetStatus()),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

// ListExistingAttributedComments returns the path:line positions of review
// comments posted by earlier runs, recognized by the attribution marker in
// the comment body.
func (c *Client) ListExistingAttributedComments(ctx context.Context, owner, repo string, number int) ([]models.CommentRef, error) {
	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var refs []models.CommentRef
	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}
		for _, cm := range comments {
			if !strings.Contains(cm.GetBody(), review.AttributionMarker) {
				continue
			}
			line := cm.GetLine()
			if line == 0 {
				line = cm.GetOriginalLine()
			}
			refs = append(refs, models.CommentRef{Path: cm.GetPath(), Line: line})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return refs, nil
}

// PostReview submits one batched review: the summary body plus all inline
// comments, as a neutral COMMENT event so the review never approves or
// blocks a merge on its own.
func (c *Client) PostReview(ctx context.Context, owner, repo string, number int, summary string, comments []models.InlineComment) error {
	draft := make([]*gh.DraftReviewComment, 0, len(comments))
	for _, cm := range comments {
		draft = append(draft, &gh.DraftReviewComment{
			Path: gh.Ptr(cm.Path),
			Line: gh.Ptr(cm.Line),
			Side: gh.Ptr("RIGHT"),
			Body: gh.Ptr(cm.Body),
		})
	}

	req := &gh.PullRequestReviewRequest{
		Event:    gh.Ptr("COMMENT"),
		Body:     gh.Ptr(summary),
		Comments: draft,
	}

	_, resp, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, number, req)
	if err != nil {
		return fmt.Errorf("creating review for %s/%s#%d: %w", owner, repo, number, err)
	}

	if resp != nil && resp.Rate.Remaining < 100 {
		log.Warn().
			Int("remaining", resp.Rate.Remaining).
			Time("reset", resp.Rate.Reset.Time).
			Msg("github rate limit running low")
	}
	return nil
}

func mapPullRequest(pr *gh.PullRequest) *models.PullRequest {
	return &models.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		State:   pr.GetState(),
		Draft:   pr.GetDraft(),
		HeadSHA: pr.GetHead().GetSHA(),
	}
}

func mapChangeKind(status string) models.ChangeKind {
	switch status {
	case "added", "copied":
		return models.ChangeAdded
	case "removed":
		return models.ChangeRemoved
	case "renamed":
		return models.ChangeRenamed
	default:
		return models.ChangeModified
	}
}

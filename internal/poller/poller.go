// Package poller periodically scans the watched repositories for open pull
// requests and triggers reviews, as a fallback for missed webhook deliveries.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/prsentry/internal/config"
	"github.com/prsentry/internal/review"
	"github.com/prsentry/pkg/models"
)

// scanTimeout bounds one full scan across all watched repositories.
const scanTimeout = 30 * time.Minute

// PullRequestLister lists a repository's open pull requests. Satisfied by the
// GitHub provider client.
type PullRequestLister interface {
	ListOpenPullRequests(ctx context.Context, owner, repo string) ([]models.PullRequest, error)
}

// Reviewer triggers one pull request review. Satisfied by *review.Service.
type Reviewer interface {
	ReviewPullRequest(ctx context.Context, owner, repo string, number int) error
}

// Poller schedules repository scans and tracker sweeps.
type Poller struct {
	repos    []string
	lister   PullRequestLister
	reviews  Reviewer
	tracker  *review.Tracker
	interval time.Duration

	scheduler gocron.Scheduler

	mu        sync.Mutex // prevents concurrent scans
	isRunning bool
}

// New creates a poller over the given "owner/repo" entries.
func New(repos []string, lister PullRequestLister, reviews Reviewer, tracker *review.Tracker, interval time.Duration) *Poller {
	return &Poller{
		repos:    repos,
		lister:   lister,
		reviews:  reviews,
		tracker:  tracker,
		interval: interval,
	}
}

// Start registers the scan and sweep jobs and starts the scheduler. Returns
// without blocking.
func (p *Poller) Start() error {
	if len(p.repos) == 0 {
		log.Info().Msg("no repositories configured, poller disabled")
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	p.scheduler = s

	if _, err := s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.scanAll),
	); err != nil {
		return fmt.Errorf("registering scan job: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() { p.tracker.Sweep() }),
	); err != nil {
		return fmt.Errorf("registering sweep job: %w", err)
	}

	s.Start()
	log.Info().Int("repos", len(p.repos)).Dur("interval", p.interval).Msg("poller started")
	return nil
}

// Stop shuts the scheduler down.
func (p *Poller) Stop() {
	if p.scheduler != nil {
		if err := p.scheduler.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}
}

// scanAll walks every watched repository once. If a previous scan is still
// running the tick is skipped rather than stacked.
func (p *Poller) scanAll() {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		log.Info().Msg("previous scan still running, skipping tick")
		return
	}
	p.isRunning = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.isRunning = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	for _, full := range p.repos {
		owner, repo, err := config.SplitRepo(full)
		if err != nil {
			log.Error().Err(err).Str("repo", full).Msg("skipping misconfigured repository")
			continue
		}
		p.scanRepo(ctx, owner, repo)
	}
}

// scanRepo reviews the repository's open pull requests. One pull request's
// failure does not stop the rest.
func (p *Poller) scanRepo(ctx context.Context, owner, repo string) {
	prs, err := p.lister.ListOpenPullRequests(ctx, owner, repo)
	if err != nil {
		log.Error().Err(err).Str("repo", owner+"/"+repo).Msg("listing open pull requests failed")
		return
	}

	for _, pr := range prs {
		if pr.Draft {
			continue
		}
		// Cheap pre-check; the orchestrator re-checks under its own lock.
		if !p.tracker.ShouldReview(owner+"/"+repo, pr.Number, pr.HeadSHA) {
			continue
		}
		if err := p.reviews.ReviewPullRequest(ctx, owner, repo, pr.Number); err != nil {
			log.Error().Err(err).
				Str("repo", owner+"/"+repo).
				Int("pr", pr.Number).
				Msg("poll-triggered review failed")
		}
	}
}

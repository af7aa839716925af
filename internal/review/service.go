package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/prsentry/internal/ai/gemini"
	"github.com/prsentry/internal/diff"
	"github.com/prsentry/internal/llm"
	"github.com/prsentry/internal/prompts"
	"github.com/prsentry/internal/retry"
	"github.com/prsentry/pkg/models"
)

// RepoClient is the repository collaborator: everything the pipeline needs
// from the hosting platform, behind one interface so the orchestrator can be
// tested with fakes.
type RepoClient interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error)
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.ChangedFile, error)
	// ListExistingAttributedComments returns the positions of comments this
	// system posted on earlier runs, recognized by the attribution marker.
	ListExistingAttributedComments(ctx context.Context, owner, repo string, number int) ([]models.CommentRef, error)
	// PostReview submits one batched review as a neutral "comment" action.
	PostReview(ctx context.Context, owner, repo string, number int, summary string, comments []models.InlineComment) error
}

// ModelClient sends one prompt to the LLM endpoint.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (gemini.Result, error)
}

// Config holds the orchestrator's tunables.
type Config struct {
	MaxFiles      int           // cap on reviewable files per pull request
	MaxPatchLines int           // changed-line ceiling above which a file is skipped
	ChunkInterval time.Duration // courtesy delay between chunk calls of one oversized file
	DryRun        bool          // log the review instead of posting it
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxFiles:      20,
		MaxPatchLines: 1000,
		ChunkInterval: time.Second,
	}
}

// Service composes the review pipeline: intake, filtering, segmentation,
// prompting, model calls, repair/parse, dedup and posting.
type Service struct {
	repo      RepoClient
	model     ModelClient
	tracker   *Tracker
	segmenter *diff.Segmenter
	builder   *prompts.Builder
	limiter   *rate.Limiter
	cfg       Config
}

// NewService creates a review service. The tracker is shared with every
// triggering path so poll ticks and webhook deliveries see the same
// idempotency state.
func NewService(repo RepoClient, model ModelClient, tracker *Tracker, cfg Config) *Service {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultConfig().MaxFiles
	}
	if cfg.MaxPatchLines <= 0 {
		cfg.MaxPatchLines = DefaultConfig().MaxPatchLines
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = DefaultConfig().ChunkInterval
	}

	return &Service{
		repo:      repo,
		model:     model,
		tracker:   tracker,
		segmenter: diff.NewSegmenter(),
		builder:   prompts.NewBuilder(),
		limiter:   rate.NewLimiter(rate.Every(cfg.ChunkInterval), 1),
		cfg:       cfg,
	}
}

// ReviewPullRequest runs the end-to-end pipeline for one pull request.
// Draft/closed PRs, empty change sets and all-duplicate results are terminal
// skips, not errors. Per-file model or parse failures are logged and that
// file contributes nothing. Only a failure to reach the repository itself
// propagates to the caller.
func (s *Service) ReviewPullRequest(ctx context.Context, owner, repoName string, number int) error {
	logger := log.With().
		Str("review_id", uuid.NewString()[:8]).
		Str("pr", fmt.Sprintf("%s/%s#%d", owner, repoName, number)).
		Logger()

	pr, err := s.repo.GetPullRequest(ctx, owner, repoName, number)
	if err != nil {
		return fmt.Errorf("fetching pull request: %w", err)
	}
	if pr.Draft || pr.State != "open" {
		logger.Debug().Bool("draft", pr.Draft).Str("state", pr.State).Msg("pull request not reviewable, skipping")
		return nil
	}

	repoFull := owner + "/" + repoName
	if !s.tracker.ShouldReview(repoFull, number, pr.HeadSHA) {
		logger.Debug().Str("head_sha", pr.HeadSHA).Msg("commit already reviewed, skipping")
		return nil
	}

	files, err := s.repo.ListChangedFiles(ctx, owner, repoName, number)
	if err != nil {
		return fmt.Errorf("listing changed files: %w", err)
	}
	if len(files) == 0 {
		logger.Debug().Msg("no changed files, skipping")
		return nil
	}

	reviewable := filterReviewable(files, s.cfg.MaxPatchLines, s.cfg.MaxFiles)
	if len(reviewable) == 0 {
		logger.Debug().Int("changed", len(files)).Msg("no reviewable files after filtering, skipping")
		return nil
	}
	logger.Info().Int("changed", len(files)).Int("reviewable", len(reviewable)).Msg("starting review")

	var findings []models.ReviewComment
	for _, file := range reviewable {
		if file.Patch == "" {
			continue
		}
		comments, err := s.reviewFile(ctx, logger, file)
		if err != nil {
			// One file's failure must not abort the rest of the review.
			logger.Warn().Err(err).Str("file", file.Path).Msg("file review failed, continuing")
			continue
		}
		findings = append(findings, comments...)
	}

	existing, err := s.repo.ListExistingAttributedComments(ctx, owner, repoName, number)
	if err != nil {
		return fmt.Errorf("listing existing comments: %w", err)
	}

	fresh := FilterDuplicates(findings, ExistingKeySet(existing))
	if len(fresh) == 0 {
		logger.Info().Int("raw", len(findings)).Msg("no new comments after dedup, nothing to post")
		return nil
	}

	tally := TallyComments(fresh)
	summary := FormatSummary(tally)
	inline := make([]models.InlineComment, 0, len(fresh))
	for _, c := range fresh {
		inline = append(inline, models.InlineComment{
			Path: c.Path,
			Line: c.Line,
			Body: FormatInlineComment(c),
		})
	}

	if s.cfg.DryRun {
		logger.Info().
			Int("comments", len(inline)).
			Int("errors", tally.Errors).
			Int("warnings", tally.Warnings).
			Int("infos", tally.Infos).
			Msg("dry run, not posting review")
		return nil
	}

	if err := s.repo.PostReview(ctx, owner, repoName, number, summary, inline); err != nil {
		return fmt.Errorf("posting review: %w", err)
	}
	s.tracker.MarkReviewed(repoFull, number, pr.HeadSHA)

	logger.Info().
		Int("comments", len(inline)).
		Int("errors", tally.Errors).
		Str("head_sha", pr.HeadSHA).
		Msg("review posted")
	return nil
}

// reviewFile prompts the model for one file, segmenting the patch first when
// it is oversized, and returns the validated findings.
func (s *Service) reviewFile(ctx context.Context, logger zerolog.Logger, file models.ChangedFile) ([]models.ReviewComment, error) {
	chunks := []models.DiffChunk{{Body: file.Patch, Additions: file.Additions, Deletions: file.Deletions}}
	if s.segmenter.ShouldSegment(file.Patch, file.Additions) {
		chunks = s.segmenter.Segment(file.Patch)
		logger.Debug().Str("file", file.Path).Int("chunks", len(chunks)).Msg("segmented oversized diff")
	}

	var comments []models.ReviewComment
	for i, chunk := range chunks {
		if len(chunks) > 1 && i > 0 {
			// Courtesy delay between chunk calls of the same file.
			if err := s.limiter.Wait(ctx); err != nil {
				return comments, err
			}
		}

		prompt := s.builder.BuildFilePrompt(file.Path, chunk.Content(), chunk.Additions)
		result, err := s.generate(ctx, prompt)
		if err != nil {
			return comments, fmt.Errorf("model call for chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if result.Truncated {
			logger.Debug().Str("file", file.Path).Int("chunk", i+1).Msg("model response truncated, repairing partial output")
		}

		comments = append(comments, llm.ParseComments(result.Text, file.Path)...)
	}
	return comments, nil
}

// generate calls the model with backoff on transient failures. Safety blocks
// and empty responses are permanent for a given prompt and fail immediately.
func (s *Service) generate(ctx context.Context, prompt string) (gemini.Result, error) {
	cfg := retry.ModelConfig()
	cfg.RetryIf = gemini.IsRetryable

	var out gemini.Result
	res := retry.WithBackoff(ctx, cfg, func() error {
		result, err := s.model.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if !res.Success {
		return gemini.Result{}, res.LastError
	}
	return out, nil
}

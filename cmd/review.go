package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/prsentry/internal/ai/gemini"
	"github.com/prsentry/internal/config"
	"github.com/prsentry/internal/provider/github"
	"github.com/prsentry/internal/review"
)

// ReviewCommand returns the review command: a one-shot review of a single
// pull request.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review one pull request and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Run review without posting comments",
			},
		},
		ArgsUsage: "OWNER/REPO#NUMBER",
		Action:    runReview,
	}
}

func runReview(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: OWNER/REPO#NUMBER")
	}

	owner, repo, number, err := parseTarget(c.Args().Get(0))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	model, err := gemini.New(cfg.Gemini)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	svc := review.NewService(
		github.NewClient(cfg.GitHub.Token),
		model,
		review.NewTracker(cfg.Review.Retention),
		review.Config{
			MaxFiles:      cfg.Review.MaxFiles,
			MaxPatchLines: cfg.Review.MaxPatchLines,
			ChunkInterval: cfg.Review.ChunkInterval,
			DryRun:        cfg.Review.DryRun || c.Bool("dry-run"),
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	return svc.ReviewPullRequest(ctx, owner, repo, number)
}

// parseTarget splits "owner/repo#number".
func parseTarget(arg string) (owner, repo string, number int, err error) {
	full, num, ok := strings.Cut(arg, "#")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid target %q, want OWNER/REPO#NUMBER", arg)
	}
	owner, repo, err = config.SplitRepo(full)
	if err != nil {
		return "", "", 0, err
	}
	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", num)
	}
	return owner, repo, number, nil
}

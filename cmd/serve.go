package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/prsentry/internal/ai/gemini"
	"github.com/prsentry/internal/api"
	"github.com/prsentry/internal/config"
	"github.com/prsentry/internal/poller"
	"github.com/prsentry/internal/provider/github"
	"github.com/prsentry/internal/review"
)

// ServeCommand returns the serve command: the long-running webhook receiver
// plus repository poller.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook server and repository poller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Override the listen address",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	addr := cfg.Server.Addr
	if override := c.String("addr"); override != "" {
		addr = override
	}

	model, err := gemini.New(cfg.Gemini)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	repo := github.NewClient(cfg.GitHub.Token)
	tracker := review.NewTracker(cfg.Review.Retention)

	svc := review.NewService(repo, model, tracker, review.Config{
		MaxFiles:      cfg.Review.MaxFiles,
		MaxPatchLines: cfg.Review.MaxPatchLines,
		ChunkInterval: cfg.Review.ChunkInterval,
		DryRun:        cfg.Review.DryRun,
	})

	p := poller.New(cfg.GitHub.Repos, repo, svc, tracker, cfg.Review.PollInterval)
	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	defer p.Stop()

	server := api.NewServer(addr, cfg.Server.WebhookSecret, svc)
	return server.Start()
}

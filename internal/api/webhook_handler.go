package api

import (
	"context"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// reviewTimeout bounds one webhook-triggered review run, segmented model
// calls included.
const reviewTimeout = 10 * time.Minute

// Pull request actions that warrant a (re-)review.
func reviewableAction(action string) bool {
	switch action {
	case "opened", "synchronize", "reopened", "ready_for_review":
		return true
	}
	return false
}

// handleGitHubWebhook verifies, parses and dispatches a GitHub webhook
// delivery. Reviews run asynchronously: GitHub expects a fast response and
// retries slow deliveries.
func (s *Server) handleGitHubWebhook(c echo.Context) error {
	payload, err := gh.ValidatePayload(c.Request(), s.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("webhook payload rejected")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	event, err := gh.ParseWebHook(gh.WebHookType(c.Request()), payload)
	if err != nil {
		log.Warn().Err(err).Msg("webhook parse failed")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unparseable event"})
	}

	switch e := event.(type) {
	case *gh.PingEvent:
		return c.JSON(http.StatusOK, map[string]string{"status": "pong"})

	case *gh.PullRequestEvent:
		action := e.GetAction()
		if !reviewableAction(action) {
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "action": action})
		}

		owner := e.GetRepo().GetOwner().GetLogin()
		repo := e.GetRepo().GetName()
		number := e.GetPullRequest().GetNumber()

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
			defer cancel()

			if err := s.reviews.ReviewPullRequest(ctx, owner, repo, number); err != nil {
				log.Error().Err(err).
					Str("repo", owner+"/"+repo).
					Int("pr", number).
					Msg("webhook-triggered review failed")
			}
		}()

		return c.JSON(http.StatusAccepted, map[string]string{
			"status":     "accepted",
			"action":     action,
			"processing": "async",
		})

	default:
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}
}

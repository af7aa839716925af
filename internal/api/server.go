// Package api exposes the HTTP surface: the GitHub webhook receiver and a
// health check.
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// Reviewer triggers one pull request review. Satisfied by *review.Service.
type Reviewer interface {
	ReviewPullRequest(ctx context.Context, owner, repo string, number int) error
}

// Server represents the API server.
type Server struct {
	echo          *echo.Echo
	addr          string
	webhookSecret []byte
	reviews       Reviewer
}

// NewServer creates the API server. webhookSecret may be empty, in which case
// webhook signatures are not verified.
func NewServer(addr, webhookSecret string, reviews Reviewer) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())

	server := &Server{
		echo:    e,
		addr:    addr,
		reviews: reviews,
	}
	if webhookSecret != "" {
		server.webhookSecret = []byte(webhookSecret)
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	s.echo.POST("/webhook/github", s.handleGitHubWebhook)
}

// Start begins serving and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("addr", s.addr).Msg("http server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

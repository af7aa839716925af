package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prsentry/pkg/models"
)

func TestFormatInlineCommentCarriesMarker(t *testing.T) {
	body := FormatInlineComment(models.ReviewComment{
		Path:     "main.go",
		Line:     10,
		Severity: models.SeverityError,
		Message:  "nil pointer dereference when cfg is unset",
	})

	assert.Contains(t, body, AttributionMarker)
	assert.Contains(t, body, "**ERROR**: nil pointer dereference when cfg is unset")
	assert.NotContains(t, body, "```suggestion")
}

func TestFormatInlineCommentWithSuggestion(t *testing.T) {
	body := FormatInlineComment(models.ReviewComment{
		Path:       "main.go",
		Line:       10,
		Severity:   models.SeverityWarning,
		Message:    "use the context-aware variant",
		Suggestion: "conn, err := d.DialContext(ctx, network, addr)",
	})

	assert.Contains(t, body, "```suggestion\nconn, err := d.DialContext(ctx, network, addr)\n```")
}

func TestTallyComments(t *testing.T) {
	tally := TallyComments([]models.ReviewComment{
		{Severity: models.SeverityError},
		{Severity: models.SeverityWarning},
		{Severity: models.SeverityWarning},
		{Severity: models.SeverityInfo},
	})

	assert.Equal(t, Tally{Errors: 1, Warnings: 2, Infos: 1}, tally)
}

func TestFormatSummaryCountsAndEscalation(t *testing.T) {
	summary := FormatSummary(Tally{Errors: 1, Warnings: 2})

	assert.Contains(t, summary, AttributionMarker)
	assert.Contains(t, summary, "1 error(s) found.")
	assert.Contains(t, summary, "2 warning(s) found.")
	assert.NotContains(t, summary, "info note(s)")
	assert.Contains(t, summary, "needs attention before merging")
}

func TestFormatSummaryOmitsZeroSeverities(t *testing.T) {
	summary := FormatSummary(Tally{Infos: 3})

	assert.Contains(t, summary, "3 info note(s) found.")
	assert.NotContains(t, summary, "error(s) found")
	assert.NotContains(t, summary, "warning(s) found")
	assert.NotContains(t, summary, "needs attention")
}

func TestFilterReviewableSkipsAndCaps(t *testing.T) {
	files := []models.ChangedFile{
		{Path: "main.go", Kind: models.ChangeModified, Additions: 5},
		{Path: "go.sum", Kind: models.ChangeModified, Additions: 40},
		{Path: "old.go", Kind: models.ChangeRemoved, Additions: 0, Deletions: 100},
		{Path: "assets/logo.svg", Kind: models.ChangeAdded, Additions: 12},
		{Path: "huge.go", Kind: models.ChangeModified, Additions: 900, Deletions: 200},
		{Path: "api.pb.go", Kind: models.ChangeAdded, Additions: 300},
		{Path: "server.go", Kind: models.ChangeAdded, Additions: 30},
	}

	reviewable := filterReviewable(files, 1000, 20)

	paths := make([]string, 0, len(reviewable))
	for _, f := range reviewable {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"main.go", "server.go"}, paths)
}

func TestFilterReviewableFileCap(t *testing.T) {
	var files []models.ChangedFile
	for i := 0; i < 30; i++ {
		files = append(files, models.ChangedFile{
			Path:      "pkg/f" + strings.Repeat("x", i) + ".go",
			Kind:      models.ChangeModified,
			Additions: 1,
		})
	}

	assert.Len(t, filterReviewable(files, 1000, 20), 20)
}

package review

import (
	"fmt"
	"strings"

	"github.com/prsentry/pkg/models"
)

// AttributionMarker identifies comments posted by this system. Dedup relies
// on finding it verbatim in prior comment bodies, so it must never change.
const AttributionMarker = "<!-- prsentry:review -->"

const (
	commentBanner = "**PRSentry** automated review\n" + AttributionMarker

	attributionFooter = "<sub>Posted by PRSentry. Findings are AI-generated; verify before acting.</sub>"
)

func severityGlyph(s models.Severity) string {
	switch s {
	case models.SeverityError:
		return "🔴"
	case models.SeverityWarning:
		return "🟡"
	default:
		return "🔵"
	}
}

// FormatInlineComment renders the body of one positioned review comment.
func FormatInlineComment(c models.ReviewComment) string {
	var sb strings.Builder
	sb.WriteString(commentBanner)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s **%s**: %s", severityGlyph(c.Severity), strings.ToUpper(string(c.Severity)), c.Message)

	if c.Suggestion != "" {
		sb.WriteString("\n\n```suggestion\n")
		sb.WriteString(c.Suggestion)
		sb.WriteString("\n```")
	}

	sb.WriteString("\n\n")
	sb.WriteString(attributionFooter)
	return sb.String()
}

// Tally counts findings per severity.
type Tally struct {
	Errors   int
	Warnings int
	Infos    int
}

// TallyComments counts the severities in a comment batch.
func TallyComments(comments []models.ReviewComment) Tally {
	var t Tally
	for _, c := range comments {
		switch c.Severity {
		case models.SeverityError:
			t.Errors++
		case models.SeverityWarning:
			t.Warnings++
		default:
			t.Infos++
		}
	}
	return t
}

// FormatSummary renders the review's summary body: banner, non-zero
// severity counts, and an escalation sentence when any error exists.
func FormatSummary(t Tally) string {
	var sb strings.Builder
	sb.WriteString(commentBanner)
	sb.WriteString("\n")

	if t.Errors > 0 {
		fmt.Fprintf(&sb, "\n%d error(s) found.", t.Errors)
	}
	if t.Warnings > 0 {
		fmt.Fprintf(&sb, "\n%d warning(s) found.", t.Warnings)
	}
	if t.Infos > 0 {
		fmt.Fprintf(&sb, "\n%d info note(s) found.", t.Infos)
	}

	if t.Errors > 0 {
		sb.WriteString("\n\nAt least one error-severity finding needs attention before merging.")
	}

	sb.WriteString("\n\n")
	sb.WriteString(attributionFooter)
	return sb.String()
}

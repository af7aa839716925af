package prompts

import (
	"fmt"
	"strings"
)

// reviewInstructions is the fixed instruction preamble for every review
// request. The model must answer with a bare JSON array so the response can
// be machine-parsed; prose answers are treated as parse failures downstream.
const reviewInstructions = `You are a senior code reviewer. Review the following unified diff and report genuine problems.

Rules:
- Respond ONLY with a JSON array. No markdown, no prose, no code fences.
- Each element must be an object: {"path": string, "line": number, "severity": "error"|"warning"|"info", "message": string, "suggestion": string (optional)}.
- "line" is the 1-based line number on the NEW side of the diff (lines prefixed with "+").
- Focus on security, correctness and performance issues. Do not comment on style or formatting.
- If the diff has no issues worth raising, respond with [].`

// TruncationMarker is appended whenever the diff body had to be cut, so the
// model does not mistake a cut diff for a complete one.
const TruncationMarker = "\n[... diff truncated ...]"

const (
	baseDiffBudget      = 1500
	perAdditionBudget   = 10
	maxAdditionalBudget = 1000
)

// Builder renders bounded review prompts from diff chunks.
type Builder struct{}

// NewBuilder creates a new prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// DiffBudget computes the character budget for a diff body: larger changes
// get proportionally more room, capped.
func DiffBudget(additions int) int {
	extra := additions * perAdditionBudget
	if extra > maxAdditionalBudget {
		extra = maxAdditionalBudget
	}
	return baseDiffBudget + extra
}

// BuildFilePrompt renders one prompt for a file's diff (or one chunk of it).
// The diff portion is truncated to the budget on a line boundary, never
// mid-line, with an explicit marker when content was dropped.
func (b *Builder) BuildFilePrompt(path, diffText string, additions int) string {
	var sb strings.Builder
	sb.WriteString(reviewInstructions)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "File: %s\n\n", path)
	sb.WriteString(TruncateDiff(diffText, DiffBudget(additions)))
	return sb.String()
}

// TruncateDiff cuts text to at most budget characters at a line boundary and
// appends the truncation marker. Text within budget is returned unchanged.
func TruncateDiff(text string, budget int) string {
	if len(text) <= budget {
		return text
	}

	cut := strings.LastIndexByte(text[:budget], '\n')
	if cut <= 0 {
		// No line boundary inside the budget; drop the whole body rather
		// than emit a mid-line fragment.
		return TruncationMarker
	}
	return text[:cut] + TruncationMarker
}

package models

// Severity classifies a review finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidSeverity reports whether s is one of the three known severities.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// ChangeKind describes how a pull request touched a file.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
	ChangeRenamed  ChangeKind = "renamed"
)

// PullRequest carries the subset of PR metadata the review pipeline needs.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"` // "open" or "closed"
	Draft   bool   `json:"draft"`
	HeadSHA string `json:"head_sha"`
}

// ChangedFile is one file touched by a pull request. Patch holds the unified
// diff text and is empty for binary files.
type ChangedFile struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Patch     string     `json:"patch"`
}

// DiffChunk is a self-contained slice of a file's patch: the shared file
// header lines plus one or more hunks. Header lines may repeat across the
// chunks of a file so that each chunk stays independently interpretable.
type DiffChunk struct {
	Header    string `json:"header"`
	Body      string `json:"body"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Content returns the full re-postable diff text of the chunk.
func (c DiffChunk) Content() string {
	if c.Header == "" {
		return c.Body
	}
	return c.Header + "\n" + c.Body
}

// ReviewComment is one positioned finding produced by the model. Line is
// 1-based and refers to the new ("+") side of the diff.
type ReviewComment struct {
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Valid reports whether the comment satisfies the validity invariant:
// non-empty path and message, positive line, known severity.
func (c ReviewComment) Valid() bool {
	return c.Path != "" && c.Message != "" && c.Line >= 1 && ValidSeverity(c.Severity)
}

// CommentRef identifies an already-posted comment by position only.
type CommentRef struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// InlineComment is one rendered comment ready to be posted.
type InlineComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

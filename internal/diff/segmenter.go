package diff

import (
	"strings"

	"github.com/prsentry/pkg/models"
)

const (
	// maxHeaderLines bounds the shared file-header context copied into
	// every chunk.
	maxHeaderLines = 10

	// maxChunkLines forces a chunk boundary independent of hunk size, so a
	// single giant hunk cannot produce an unbounded chunk.
	maxChunkLines = 100

	// segmentMinChars and segmentMinAdditions gate segmentation: small or
	// low-signal diffs are not worth the chunking overhead.
	segmentMinChars     = 2000
	segmentMinAdditions = 25
)

// Segmenter splits oversized unified diffs into self-contained chunks.
type Segmenter struct{}

// NewSegmenter creates a new diff segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// ShouldSegment reports whether a file's patch is large enough to be worth
// splitting before prompting.
func (s *Segmenter) ShouldSegment(patch string, additions int) bool {
	return len(patch) > segmentMinChars && additions > segmentMinAdditions
}

// Segment splits a unified diff into ordered chunks. Each chunk carries the
// shared file header plus one or more hunks; concatenating all chunk bodies
// in order reproduces the hunks of the original diff. A diff without hunk
// headers comes back as a single chunk.
func (s *Segmenter) Segment(patch string) []models.DiffChunk {
	lines := strings.Split(patch, "\n")

	firstHunk := -1
	for i, line := range lines {
		if isHunkHeader(line) {
			firstHunk = i
			break
		}
	}

	if firstHunk == -1 {
		return []models.DiffChunk{buildChunk("", lines)}
	}

	headerEnd := firstHunk
	if headerEnd > maxHeaderLines {
		headerEnd = maxHeaderLines
	}
	header := strings.Join(lines[:headerEnd], "\n")

	var chunks []models.DiffChunk
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(header, current))
		current = nil
	}

	for _, line := range lines[firstHunk:] {
		if isHunkHeader(line) && len(current) > 0 {
			flush()
		} else if len(current) >= maxChunkLines && !isHunkHeader(current[len(current)-1]) {
			// Bound chunk size, but never leave a hunk header dangling as
			// the last line of a chunk.
			flush()
		}
		current = append(current, line)
	}
	flush()

	return chunks
}

func buildChunk(header string, lines []string) models.DiffChunk {
	chunk := models.DiffChunk{
		Header: header,
		Body:   strings.Join(lines, "\n"),
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			chunk.Additions++
		case strings.HasPrefix(line, "-"):
			chunk.Deletions++
		}
	}
	return chunk
}

func isHunkHeader(line string) bool {
	return strings.HasPrefix(line, "@@")
}

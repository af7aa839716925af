package review

import (
	"strings"

	"github.com/prsentry/pkg/models"
)

// Non-source files the model has nothing useful to say about: lockfiles,
// generated code, binaries and build artifacts.
var excludedSuffixes = []string{
	".lock",
	".sum",
	".mod",
	".svg",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".ico",
	".map",
	".min.js",
	".min.css",
	".pb.go",
}

func excludedPath(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// filterReviewable keeps the files worth sending to the model: not removed,
// not a known non-source extension, and not beyond the changed-line ceiling.
// The result is capped at maxFiles.
func filterReviewable(files []models.ChangedFile, maxPatchLines, maxFiles int) []models.ChangedFile {
	reviewable := make([]models.ChangedFile, 0, len(files))
	for _, f := range files {
		if f.Kind == models.ChangeRemoved {
			continue
		}
		if excludedPath(f.Path) {
			continue
		}
		if f.Additions+f.Deletions > maxPatchLines {
			continue
		}
		reviewable = append(reviewable, f)
		if len(reviewable) == maxFiles {
			break
		}
	}
	return reviewable
}

package review

import (
	"strconv"

	"github.com/prsentry/pkg/models"
)

// DedupKey is the identity of a posted comment for dedup purposes: position
// only, not message content. A reworded finding at an already-commented line
// stays suppressed on purpose; no-noise beats message freshness.
func DedupKey(path string, line int) string {
	return path + ":" + strconv.Itoa(line)
}

// ExistingKeySet builds the dedup set from comments already posted on the
// pull request.
func ExistingKeySet(refs []models.CommentRef) map[string]struct{} {
	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		set[DedupKey(ref.Path, ref.Line)] = struct{}{}
	}
	return set
}

// FilterDuplicates returns the comments whose path:line key is not already
// covered by an existing comment, preserving order.
func FilterDuplicates(comments []models.ReviewComment, existing map[string]struct{}) []models.ReviewComment {
	fresh := make([]models.ReviewComment, 0, len(comments))
	for _, c := range comments {
		if _, dup := existing[DedupKey(c.Path, c.Line)]; dup {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

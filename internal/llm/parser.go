package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/prsentry/pkg/models"
)

// rawComment is the wire shape the model is instructed to emit.
type rawComment struct {
	Path       string `json:"path"`
	Line       int    `json:"line"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// ParseComments turns raw model text into validated review comments. It
// never fails to its caller: when no strategy yields a parseable array the
// file's findings are dropped and an empty slice comes back. Strategies, in
// order of preference:
//  1. the whole trimmed text as a JSON array
//  2. the first-'['..last-']' span
//  3. everything from the first '[' onward, structurally repaired
//  4. the jsonrepair library as a last resort on that same candidate
func ParseComments(raw, path string) []models.ReviewComment {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if comments, err := decodeArray(trimmed); err == nil {
		return comments
	}

	start := strings.IndexByte(trimmed, '[')
	if start == -1 {
		log.Debug().Str("file", path).Msg("no JSON array found in model response")
		return nil
	}

	if end := strings.LastIndexByte(trimmed, ']'); end > start {
		if comments, err := decodeArray(trimmed[start : end+1]); err == nil {
			return comments
		}
	}

	candidate := trimmed[start:]
	repaired := RepairArray(candidate)
	if comments, err := decodeArray(repaired); err == nil {
		log.Debug().
			Str("file", path).
			Int("raw_len", len(candidate)).
			Int("repaired_len", len(repaired)).
			Msg("recovered comments from malformed model response")
		return comments
	}

	if fixed, err := jsonrepair.JSONRepair(candidate); err == nil {
		if comments, err := decodeArray(fixed); err == nil {
			log.Debug().Str("file", path).Msg("jsonrepair fallback recovered model response")
			return comments
		}
	}

	log.Warn().
		Str("file", path).
		Int("response_len", len(raw)).
		Msg("model response unparseable after repair, dropping file findings")
	return nil
}

// decodeArray parses a JSON array of comment objects. Elements that fail to
// decode or fail validation are dropped individually; one bad element does
// not invalidate the batch.
func decodeArray(s string) ([]models.ReviewComment, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(s), &elements); err != nil {
		return nil, err
	}

	comments := make([]models.ReviewComment, 0, len(elements))
	for _, el := range elements {
		var rc rawComment
		if err := json.Unmarshal(el, &rc); err != nil {
			continue
		}
		comment := models.ReviewComment{
			Path:       rc.Path,
			Line:       rc.Line,
			Severity:   models.Severity(strings.ToLower(rc.Severity)),
			Message:    rc.Message,
			Suggestion: rc.Suggestion,
		}
		if !comment.Valid() {
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

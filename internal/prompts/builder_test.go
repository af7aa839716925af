package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffBudget(t *testing.T) {
	assert.Equal(t, 1500, DiffBudget(0))
	assert.Equal(t, 1600, DiffBudget(10))
	assert.Equal(t, 2300, DiffBudget(80))
	// Capped: additions beyond 100 do not grow the budget further.
	assert.Equal(t, 2500, DiffBudget(100))
	assert.Equal(t, 2500, DiffBudget(5000))
}

func TestTruncateDiffWithinBudget(t *testing.T) {
	text := "@@ -1 +1 @@\n+short diff"
	assert.Equal(t, text, TruncateDiff(text, 1500))
}

func TestTruncateDiffNeverCutsMidLine(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("+this line is exactly forty characters!!\n")
	}
	text := sb.String()

	budget := 1000
	out := TruncateDiff(text, budget)

	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	body := strings.TrimSuffix(out, TruncationMarker)
	assert.LessOrEqual(t, len(body), budget)

	// Every retained line must be whole.
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		assert.Equal(t, "+this line is exactly forty characters!!", line)
	}
}

func TestTruncateDiffBoundProperty(t *testing.T) {
	text := strings.Repeat("+x\n", 2000)
	for _, budget := range []int{100, 500, 1500, 2500} {
		out := TruncateDiff(text, budget)
		assert.LessOrEqual(t, len(out), budget+len(TruncationMarker),
			"budget %d", budget)
	}
}

func TestTruncateDiffNoNewlineInsideBudget(t *testing.T) {
	text := strings.Repeat("x", 5000)
	assert.Equal(t, TruncationMarker, TruncateDiff(text, 100))
}

func TestBuildFilePrompt(t *testing.T) {
	b := NewBuilder()
	prompt := b.BuildFilePrompt("pkg/util.go", "@@ -1 +1 @@\n+x", 3)

	assert.Contains(t, prompt, "JSON array")
	assert.Contains(t, prompt, "File: pkg/util.go")
	assert.Contains(t, prompt, "@@ -1 +1 @@\n+x")
	assert.NotContains(t, prompt, TruncationMarker)
}

func TestBuildFilePromptTruncatesLargeDiff(t *testing.T) {
	b := NewBuilder()
	diff := strings.Repeat("+padding line\n", 1000)
	prompt := b.BuildFilePrompt("big.go", diff, 0)

	assert.True(t, strings.HasSuffix(prompt, TruncationMarker))
}

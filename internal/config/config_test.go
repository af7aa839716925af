package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prsentry.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[github]
token = "tok"

[gemini]
api_key = "key"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.Server.Addr)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 20, cfg.Review.MaxFiles)
	assert.Equal(t, 1000, cfg.Review.MaxPatchLines)
	assert.Equal(t, 5*time.Minute, cfg.Review.PollInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Review.Retention)
	assert.False(t, cfg.Review.DryRun)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"

[github]
token = "tok"
repos = ["acme/widgets", "acme/gadgets"]

[gemini]
api_key = "key"
model = "gemini-2.5-pro"

[review]
max_files = 5
poll_interval = "30s"
dry_run = true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"acme/widgets", "acme/gadgets"}, cfg.GitHub.Repos)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 5, cfg.Review.MaxFiles)
	assert.Equal(t, 30*time.Second, cfg.Review.PollInterval)
	assert.True(t, cfg.Review.DryRun)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("PRSENTRY_GITHUB_TOKEN", "env-token")
	t.Setenv("PRSENTRY_GEMINI_API_KEY", "env-key")

	path := writeConfig(t, `
[github]
token = "file-token"

[gemini]
api_key = "file-key"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GitHub.Token)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, Validate(cfg), "github token")

	cfg.GitHub.Token = "tok"
	assert.ErrorContains(t, Validate(cfg), "gemini api_key")

	cfg.Gemini.APIKey = "key"
	require.NoError(t, Validate(cfg))

	cfg.GitHub.Repos = []string{"not-a-repo"}
	assert.ErrorContains(t, Validate(cfg), "invalid repository")

	cfg.GitHub.Repos = []string{"acme/widgets"}
	require.NoError(t, Validate(cfg))
}

func TestSplitRepo(t *testing.T) {
	owner, repo, err := SplitRepo("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	_, _, err = SplitRepo("acme")
	assert.Error(t, err)
	_, _, err = SplitRepo("/widgets")
	assert.Error(t, err)
}

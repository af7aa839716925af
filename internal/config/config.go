// Package config loads the application configuration from defaults, an
// optional TOML file and PRSENTRY_-prefixed environment variables, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/prsentry/internal/ai/gemini"
)

// Config represents the application configuration.
type Config struct {
	Server struct {
		Addr          string `koanf:"addr"`
		WebhookSecret string `koanf:"webhook_secret"`
	} `koanf:"server"`

	GitHub struct {
		Token string   `koanf:"token"`
		Repos []string `koanf:"repos"` // "owner/repo" entries watched by the poller
	} `koanf:"github"`

	Gemini gemini.Config `koanf:"gemini"`

	Review struct {
		MaxFiles      int           `koanf:"max_files"`
		MaxPatchLines int           `koanf:"max_patch_lines"`
		ChunkInterval time.Duration `koanf:"chunk_interval"`
		PollInterval  time.Duration `koanf:"poll_interval"`
		Retention     time.Duration `koanf:"retention"`
		DryRun        bool          `koanf:"dry_run"`
	} `koanf:"review"`
}

// LoadConfig loads the configuration from a file path (or the default
// locations when empty), then overlays environment variables.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"server.addr":            ":8088",
		"gemini.model":           "gemini-2.0-flash",
		"gemini.timeout":         "30s",
		"review.max_files":       20,
		"review.max_patch_lines": 1000,
		"review.chunk_interval":  "1s",
		"review.poll_interval":   "5m",
		"review.retention":       "168h",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./prsentry.toml", "$HOME/.prsentry.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// PRSENTRY_GITHUB_TOKEN maps to github.token, and so on. Underscores
	// inside a key name are not expressible this way, so those keys are
	// file-or-default only.
	k.Load(env.Provider("PRSENTRY_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "PRSENTRY_")
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# PRSentry Configuration

[server]
addr = ":8088"
# webhook_secret = "shared-secret-for-github-webhooks"

[github]
token = "your-github-token"
repos = ["owner/repo"]

[gemini]
api_key = "your-gemini-api-key"
model = "gemini-2.0-flash"

[review]
max_files = 20
max_patch_lines = 1000
poll_interval = "5m"
dry_run = false
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks that the configuration is usable.
func Validate(config *Config) error {
	if config.GitHub.Token == "" {
		return fmt.Errorf("github token is required")
	}
	if config.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api_key is required")
	}
	for _, repo := range config.GitHub.Repos {
		if _, _, err := SplitRepo(repo); err != nil {
			return err
		}
	}
	return nil
}

// SplitRepo splits an "owner/repo" string.
func SplitRepo(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", full)
	}
	return owner, repo, nil
}

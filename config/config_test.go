package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, DefaultSelectors()[TargetProvider], cfg.Selectors[TargetProvider])
	assert.Equal(t, DefaultStepTokens(), cfg.StepTokens)
	assert.Equal(t, DefaultCaptureRules(), cfg.CaptureRules)
}

func TestLoadFileReplacesOnlyListedTargets(t *testing.T) {
	path := writeConfig(t, `
MAX_CONCURRENCY: 4
PER_STEP_TIMEOUT_MS: 9000
SELECTORS:
  provider:
    - selector: ".court-name"
    - kind: REGEX
      pattern: "Корт\\s*\\d+"
STEP_TOKENS:
  staff_select: ["choose-court"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 9000, cfg.PerStepTimeoutMs)
	assert.Equal(t, []Strategy{
		{Kind: StrategyCSS, Selector: ".court-name"},
		{Kind: StrategyRegex, Pattern: `Корт\s*\d+`},
	}, cfg.Selectors[TargetProvider])
	assert.Equal(t, DefaultSelectors()[TargetPrice], cfg.Selectors[TargetPrice])
	assert.Equal(t, []string{"choose-court"}, cfg.StepTokens["staff_select"])
	assert.Equal(t, DefaultStepTokens()["time_select"], cfg.StepTokens["time_select"])
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MAX_CONCURRENCY", "3")
	t.Setenv("TARGET_URLS", "https://a.test/company/1,https://b.test/company/2")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Equal(t, []string{"https://a.test/company/1", "https://b.test/company/2"}, cfg.TargetURLs)
	assert.False(t, cfg.Headless)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPattern(t *testing.T) {
	path := writeConfig(t, `
SELECTORS:
  price:
    - kind: regex
      pattern: "(unclosed"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price[0]")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero step timeout", func(c *Config) { c.PerStepTimeoutMs = 0 }},
		{"negative session timeout", func(c *Config) { c.PerSessionTimeoutMs = -1 }},
		{"no concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"no steps", func(c *Config) { c.MaxSteps = 0 }},
		{"unknown kind", func(c *Config) { c.Selectors[TargetPrice] = []Strategy{{Kind: "xpath", Selector: "//span"}} }},
		{"empty css", func(c *Config) { c.Selectors[TargetPrice] = []Strategy{{Kind: StrategyCSS}} }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultSelectorsCompile(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	for target, list := range cfg.Selectors {
		assert.NotEmpty(t, list, target)
	}
	assert.Equal(t, StrategyRegex, cfg.Selectors[TargetProvider][len(cfg.Selectors[TargetProvider])-1].Kind)
}

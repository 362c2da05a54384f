package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://api.github.com/", cfg.GitHub.APIURL)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
	assert.True(t, cfg.Sandbox.Enabled)
	assert.Equal(t, "verify-github", cfg.Sandbox.Command)
	assert.Equal(t, []string{"--format=json"}, cfg.Sandbox.Args)
	assert.Equal(t, 15*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 150, cfg.OpenAI.MaxTokens)
	assert.Empty(t, cfg.Data.Dir)
}

func TestLoad_FileThenEnvPriority(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
server:
  addr: ":9000"
sandbox:
  timeout: 20s
  command: /usr/local/bin/verify-github
github:
  token: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("TRUSTGRAPH_SANDBOX__TIMEOUT", "3s")
	t.Setenv("TRUSTGRAPH_GITHUB__API_URL", "http://localhost:1234/")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/usr/local/bin/verify-github", cfg.Sandbox.Command)
	assert.Equal(t, 3*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, "http://localhost:1234/", cfg.GitHub.APIURL)
	assert.Equal(t, "from-file", cfg.GitHub.Token)
}

func TestLoad_WellKnownCredentialFallbacks(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name           string
		env            map[string]string
		path           string
		expectedErrMsg string
	}{
		{
			name:           "missing config file",
			path:           "/does/not/exist.yml",
			expectedErrMsg: "failed to load config file",
		},
		{
			name:           "invalid api url",
			env:            map[string]string{"TRUSTGRAPH_GITHUB__API_URL": "not a url"},
			expectedErrMsg: "config validation failed",
		},
		{
			name:           "zero sandbox timeout",
			env:            map[string]string{"TRUSTGRAPH_SANDBOX__TIMEOUT": "0s"},
			expectedErrMsg: "config validation failed",
		},
		{
			name:           "unknown log format",
			env:            map[string]string{"TRUSTGRAPH_LOG__FORMAT": "xml"},
			expectedErrMsg: "config validation failed",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(tc.path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.expectedErrMsg)
		})
	}
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "github.api_url", envTransform("TRUSTGRAPH_GITHUB__API_URL"))
	assert.Equal(t, "sandbox.enabled", envTransform("TRUSTGRAPH_SANDBOX__ENABLED"))
}

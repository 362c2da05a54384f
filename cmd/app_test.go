package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/trustgraph/internal/config"
	"github.com/naka-gawa/trustgraph/internal/domain"
)

func testConfig(sandbox bool) *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{
			APIURL:     "http://github.test/",
			GraphQLURL: "http://github.test/graphql",
			Timeout:    time.Second,
		},
		Sandbox: config.SandboxConfig{
			Enabled: sandbox,
			Command: "verify-github",
			Timeout: time.Second,
		},
	}
}

func TestNewApp_ProberOrder(t *testing.T) {
	testCases := []struct {
		name            string
		sandboxEnabled  bool
		expectedMethods []domain.Method
	}{
		{
			name:            "sandbox enabled runs sandboxed first and direct last",
			sandboxEnabled:  true,
			expectedMethods: []domain.Method{domain.MethodSandboxed, domain.MethodDirect},
		},
		{
			name:            "sandbox disabled leaves only direct",
			sandboxEnabled:  false,
			expectedMethods: []domain.Method{domain.MethodDirect},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := newApp(testConfig(tc.sandboxEnabled), zerolog.Nop())
			require.NoError(t, err)

			var methods []domain.Method
			for _, p := range a.probers {
				methods = append(methods, p.Method())
			}
			assert.Equal(t, tc.expectedMethods, methods)
		})
	}
}

func TestVerifyCommand_UsesCommandContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"total_count": 1}`))
	}))
	defer server.Close()

	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TRUSTGRAPH_SANDBOX__ENABLED", "false")
	t.Setenv("TRUSTGRAPH_GITHUB__API_URL", server.URL+"/")
	t.Setenv("TRUSTGRAPH_LOG__LEVEL", "off")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs([]string{"verify", "octocat", "octo/hello"})
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(ctx))

	var results []domain.VerificationResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
	assert.Equal(t, domain.ErrorKindNetwork, results[0].ErrorKind)
	assert.Equal(t, int32(0), hits.Load())
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-report/internal/action"
	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/store"
)

// testConfig mirrors config.Load defaults without touching the environment.
func testConfig() *config.Config {
	return &config.Config{
		Provider:  config.ProviderOpenAI,
		OpenAI:    config.OpenAIConfig{Key: "sk-test", Model: "gpt-5"},
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096},
		Fetch:     config.FetchConfig{TimeoutSecs: 10, MaxChars: 2000, MaxBodyBytes: 10 << 20},
		Form: config.FormConfig{
			DefaultURL:   "https://example.com",
			DefaultNotes: "Looking for SEO, design, or branding issues.",
		},
		Store:  config.StoreConfig{Driver: config.StoreNone},
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Batch:  config.BatchConfig{MaxConcurrent: 4},
		Pricing: config.PricingConfig{Models: []config.ModelPricing{
			{Model: "gpt-5", Input: 1.25, Output: 10},
		}},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

// fakeOpenAI answers chat completions with a report that echoes the user prompt.
func fakeOpenAI(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1735689600,
			"model":   "gpt-5",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "REPORT FOR: " + req.Messages[1].Content},
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func fakeSite(t *testing.T, html string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, html)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestReportEnv_Close_Nil(t *testing.T) {
	re := &reportEnv{}
	assert.NotPanics(t, func() { re.Close() })
}

func TestInitEnv_ValidationError(t *testing.T) {
	cfg = testConfig()
	cfg.Provider = "mistral"

	env, err := initEnv(context.Background(), "analyze")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral")
}

func TestInitEnv_NoStore(t *testing.T) {
	cfg = testConfig()

	env, err := initEnv(context.Background(), "analyze")
	require.NoError(t, err)
	defer env.Close()
	assert.Nil(t, env.Store)
	assert.NotNil(t, env.Handler)
	assert.Equal(t, "gpt-5", env.Reporter.Model())
	assert.Equal(t, "openai", env.Reporter.Provider())
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = testConfig()
	cfg.Store = config.StoreConfig{Driver: config.StoreSQLite, DatabaseURL: filepath.Join(t.TempDir(), "test.db")}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = testConfig()
	cfg.Store = config.StoreConfig{Driver: "mysql"}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init store")
}

func TestRunAnalyze_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	api := fakeOpenAI(t, &calls)
	site := fakeSite(t, "<html><body><p>Hello</p><p>World</p></body></html>")

	cfg = testConfig()
	cfg.OpenAI.BaseURL = api.URL
	cfg.Store = config.StoreConfig{Driver: config.StoreSQLite, DatabaseURL: filepath.Join(t.TempDir(), "runs.db")}

	env, err := initEnv(context.Background(), "analyze")
	require.NoError(t, err)
	defer env.Close()

	var buf bytes.Buffer
	require.NoError(t, runAnalyze(context.Background(), &buf, env.Handler, site.URL, "check SEO", false))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, action.StatusLine))
	assert.Contains(t, out, action.Heading)
	assert.Contains(t, out, "REPORT FOR: Company URL: "+site.URL+"\nNotes: check SEO\n\nWebsite Extract: Hello World\n")
	assert.Equal(t, int32(1), calls.Load())

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Outcome)
	assert.Equal(t, int64(120), runs[0].Outcome.Usage.Total())
	assert.Greater(t, runs[0].Outcome.CostUSD, 0.0)
}

func TestRunAnalyze_JSON_AnalysisFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer api.Close()
	site := fakeSite(t, "<p>x</p>")

	cfg = testConfig()
	cfg.OpenAI.BaseURL = api.URL

	env, err := initEnv(context.Background(), "analyze")
	require.NoError(t, err)
	defer env.Close()

	var buf bytes.Buffer
	require.NoError(t, runAnalyze(context.Background(), &buf, env.Handler, site.URL, "", true))

	var o action.Outcome
	require.NoError(t, json.Unmarshal(buf.Bytes(), &o))
	assert.True(t, strings.HasPrefix(o.Error, "Error during GPT analysis: "))
	assert.Equal(t, model.ErrorKindAnalysis, o.ErrorKind)
	assert.Empty(t, o.Report)
}

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-report/internal/action"
	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/monitoring"
	"github.com/sells-group/site-report/internal/store"
)

type mockRunner struct{ mock.Mock }

func (m *mockRunner) Run(ctx context.Context, url, notes string) *action.Outcome {
	return m.Called(ctx, url, notes).Get(0).(*action.Outcome)
}

var testForm = config.FormConfig{
	DefaultURL:   "https://example.com",
	DefaultNotes: "Looking for SEO, design, or branding issues.",
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := New(new(mockRunner), testForm).Router()

	rec := do(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestForm_Defaults(t *testing.T) {
	h := New(new(mockRunner), testForm).Router()

	rec := do(t, h, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="https://example.com"`)
	assert.Contains(t, body, "Looking for SEO, design, or branding issues.")
	assert.Contains(t, body, "Generate Report")
	assert.NotContains(t, body, "<pre>")
}

func TestForm_Submit(t *testing.T) {
	mr := new(mockRunner)
	mr.On("Run", mock.Anything, "https://acme.com", "check <branding>").
		Return(&action.Outcome{Report: "## Report\n<b>bold</b>"})
	h := New(mr, testForm).Router()

	form := url.Values{"url": {"https://acme.com"}, "notes": {"check <branding>"}}
	rec := do(t, h, http.MethodPost, "/", []byte(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `value="https://acme.com"`)
	assert.Contains(t, body, "🔎 Analyzing website... please wait.")
	assert.Contains(t, body, "📊 Website Report")
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, body, "check &lt;branding&gt;")
	mr.AssertExpectations(t)
}

func TestForm_SubmitShowsInBandError(t *testing.T) {
	mr := new(mockRunner)
	mr.On("Run", mock.Anything, "", "").
		Return(&action.Outcome{Error: "Error during GPT analysis: 401", ErrorKind: model.ErrorKindAnalysis})
	h := New(mr, testForm).Router()

	rec := do(t, h, http.MethodPost, "/", []byte(""), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error during GPT analysis: 401")
}

func TestAPIAnalyze(t *testing.T) {
	mr := new(mockRunner)
	mr.On("Run", mock.Anything, "https://acme.com", "n").Return(&action.Outcome{
		RunID:       "run-1",
		Report:      "report text",
		FetchFailed: true,
		ErrorKind:   model.ErrorKindFetch,
	})
	h := New(mr, testForm).Router()

	rec := do(t, h, http.MethodPost, "/api/analyze", []byte(`{"url":" https://acme.com ","notes":"n"}`), "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "report text", resp.Report)
	assert.True(t, resp.FetchFailed)
	assert.Equal(t, model.ErrorKindFetch, resp.ErrorKind)
}

func TestAPIAnalyze_InBandFailureIs200(t *testing.T) {
	mr := new(mockRunner)
	mr.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&action.Outcome{
		Error:     "Error during GPT analysis: boom",
		ErrorKind: model.ErrorKindAnalysis,
	})
	h := New(mr, testForm).Router()

	rec := do(t, h, http.MethodPost, "/api/analyze", []byte(`{"url":"https://acme.com"}`), "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_kind":"analysis_failure"`)
}

func TestAPIAnalyze_BadRequests(t *testing.T) {
	mr := new(mockRunner)
	h := New(mr, testForm).Router()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "invalid request body"},
		{"missing url", `{"notes":"n"}`, "url is required"},
		{"blank url", `{"url":"   "}`, "url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/analyze", []byte(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	mr.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestAPIRuns_NoStore(t *testing.T) {
	h := New(new(mockRunner), testForm).Router()

	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/runs", nil, "").Code)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/runs/abc", nil, "").Code)
}

func TestAPIRuns_ListAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.AnalysisRequest{URL: "https://acme.com", Notes: "n"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, &model.RunOutcome{Report: "done"}))
	_, err = st.CreateRun(ctx, model.AnalysisRequest{URL: "https://other.com"})
	require.NoError(t, err)

	h := New(new(mockRunner), testForm, WithStore(st)).Router()

	rec := do(t, h, http.MethodGet, "/api/runs?status=complete", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	rec = do(t, h, http.MethodGet, "/api/runs?url=https://other.com&limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusRunning, runs[0].Status)

	rec = do(t, h, http.MethodGet, "/api/runs/"+run.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Outcome)
	assert.Equal(t, "done", got.Outcome.Report)

	rec = do(t, h, http.MethodGet, "/api/runs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIRuns_EmptyListIsArray(t *testing.T) {
	h := New(new(mockRunner), testForm, WithStore(newTestStore(t))).Router()

	rec := do(t, h, http.MethodGet, "/api/runs", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAPIRuns_BadQuery(t *testing.T) {
	h := New(new(mockRunner), testForm, WithStore(newTestStore(t))).Router()

	for _, q := range []string{"status=bogus", "limit=abc", "limit=-1", "offset=x"} {
		rec := do(t, h, http.MethodGet, "/api/runs?"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAPIStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ok, err := st.CreateRun(ctx, model.AnalysisRequest{URL: "https://acme.com"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, ok.ID, &model.RunOutcome{Report: "done", CostUSD: 0.01}))
	bad, err := st.CreateRun(ctx, model.AnalysisRequest{URL: "https://beta.com"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, bad.ID, &model.RunOutcome{
		Error:     "Error during GPT analysis: 401",
		ErrorKind: model.ErrorKindAnalysis,
	}))

	h := New(new(mockRunner), testForm, WithStore(st)).Router()

	rec := do(t, h, http.MethodGet, "/api/stats?since_hours=24", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.InDelta(t, 0.5, snap.FailRate, 0.001)
	assert.Equal(t, 24, snap.LookbackHours)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/stats?since_hours=x", nil, "").Code)
}

func TestAPIStats_NoStore(t *testing.T) {
	h := New(new(mockRunner), testForm).Router()
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/stats", nil, "").Code)
}

func TestAPI_CORS(t *testing.T) {
	h := New(new(mockRunner), testForm, WithAllowedOrigins([]string{"https://app.example.com"})).Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	mr := new(mockRunner)
	mr.On("Run", mock.Anything, mock.Anything, mock.Anything).Panic("boom")
	h := New(mr, testForm).Router()

	rec := do(t, h, http.MethodPost, "/api/analyze", []byte(`{"url":"https://acme.com"}`), "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunStatus(t *testing.T) {
	st, ok := runStatus("failed")
	assert.True(t, ok)
	assert.Equal(t, model.RunStatusFailed, st)

	_, ok = runStatus("queued")
	assert.False(t, ok)
}

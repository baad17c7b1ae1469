package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/config"
	"github.com/tarkovlens/questscraper/internal/orchestrator"
	"github.com/tarkovlens/questscraper/internal/scrape"
	"github.com/tarkovlens/questscraper/internal/storage/memory"
)

type fakeRunner struct {
	startOpts *orchestrator.RunOptions
	startErr  error
	quest     *scrape.ExtractedQuest
	questErr  error
	entries   []scrape.ListEntry
	listErr   error
}

func (f *fakeRunner) Start(_ context.Context, opts orchestrator.RunOptions) (string, error) {
	f.startOpts = &opts
	if f.startErr != nil {
		return "", f.startErr
	}
	return "job-123", nil
}

func (f *fakeRunner) TestPage(context.Context, string) (*scrape.ExtractedQuest, error) {
	return f.quest, f.questErr
}

func (f *fakeRunner) ListPreview(context.Context, string) ([]scrape.ListEntry, error) {
	return f.entries, f.listErr
}

func newTestServer(t *testing.T, runner *fakeRunner, cfg config.Config) (*Server, *memory.JobStore) {
	t.Helper()
	jobStore := memory.NewJobStore()
	return NewServer(runner, jobStore, nil, cfg, nil), jobStore
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_SubmitJobAccepted(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, _ := newTestServer(t, runner, config.Config{})

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/jobs",
		`{"cached_only": true, "list_url": "https://example.test/quests"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "job-123", decodeBody(t, rec)["job_id"])

	require.NotNil(t, runner.startOpts)
	require.True(t, runner.startOpts.CachedOnly)
	require.Equal(t, "https://example.test/quests", runner.startOpts.ListURL)
}

func TestServer_SubmitJobEmptyBodyUsesDefaults(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s, _ := newTestServer(t, runner, config.Config{})

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", "", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, runner.startOpts)
	require.False(t, runner.startOpts.CachedOnly)
	require.Empty(t, runner.startOpts.ListURL)
}

func TestServer_SubmitJobInvalidJSON(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeRunner{}, config.Config{})
	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", `{"cached_only":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid JSON", decodeBody(t, rec)["error"])
}

func TestServer_SubmitJobStartError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{startErr: errors.New("store unavailable")}
	s, _ := newTestServer(t, runner, config.Config{})
	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_SubmitJobAuth(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret-key"
	s, _ := newTestServer(t, &fakeRunner{}, cfg)

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", "",
		map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/scrape/jobs", "",
		map[string]string{"X-API-Key": "secret-key"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Reads stay open even with auth on.
	rec = doRequest(t, s, http.MethodGet, "/v1/scrape/jobs/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetJob(t *testing.T) {
	t.Parallel()

	s, jobStore := newTestServer(t, &fakeRunner{}, config.Config{})
	require.NoError(t, jobStore.CreateJob(context.Background(), scrape.Job{
		ID:        "job-9",
		Status:    scrape.JobStatusRunning,
		StartedAt: time.Unix(1700000000, 0).UTC(),
	}))

	rec := doRequest(t, s, http.MethodGet, "/v1/scrape/jobs/job-9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "job-9", body["id"])
	require.Equal(t, string(scrape.JobStatusRunning), body["status"])

	rec = doRequest(t, s, http.MethodGet, "/v1/scrape/jobs/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "job not found", decodeBody(t, rec)["error"])
}

func TestServer_TestPage(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{quest: &scrape.ExtractedQuest{ID: "debut", Name: "Debut"}}
	s, _ := newTestServer(t, runner, config.Config{})

	rec := doRequest(t, s, http.MethodPost, "/v1/scrape/test",
		`{"url": "https://example.test/wiki/Debut"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Debut", decodeBody(t, rec)["name"])

	rec = doRequest(t, s, http.MethodPost, "/v1/scrape/test", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "url required", decodeBody(t, rec)["error"])

	runner.questErr = errors.New("fetch timeout")
	rec = doRequest(t, s, http.MethodPost, "/v1/scrape/test",
		`{"url": "https://example.test/wiki/Debut"}`, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_ListPreview(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{entries: []scrape.ListEntry{
		{Name: "Debut", URL: "https://example.test/wiki/Debut", Trader: "Prapor"},
		{Name: "Shortage", URL: "https://example.test/wiki/Shortage", Trader: "Therapist"},
	}}
	s, _ := newTestServer(t, runner, config.Config{})

	rec := doRequest(t, s, http.MethodGet, "/v1/scrape/list", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, float64(2), body["count"])
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeRunner{}, config.Config{})
	rec := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeRunner{}, config.Config{})
	rec := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

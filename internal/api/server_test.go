package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/api"
	systemclock "github.com/parsalaw/lawfetch/internal/clock/system"
	"github.com/parsalaw/lawfetch/internal/config"
	"github.com/parsalaw/lawfetch/internal/dispatcher"
	"github.com/parsalaw/lawfetch/internal/fetch"
	uuidgen "github.com/parsalaw/lawfetch/internal/id/uuid"
	"github.com/parsalaw/lawfetch/internal/metrics"
	"github.com/parsalaw/lawfetch/internal/progress"
	"github.com/parsalaw/lawfetch/internal/progress/sinks"
	queuememory "github.com/parsalaw/lawfetch/internal/queue/memory"
	storememory "github.com/parsalaw/lawfetch/internal/store/memory"
)

type testServer struct {
	handler http.Handler
	jobs    *storememory.JobStore
	docs    *storememory.DocumentStore
	queue   *queuememory.Queue
	events  *sinks.MemorySink
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	metrics.Init()

	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
	}

	ts := &testServer{
		jobs:   storememory.NewJobStore(),
		docs:   storememory.NewDocumentStore(),
		queue:  queuememory.NewQueue(8),
		events: sinks.NewMemorySink(32),
	}
	srv := api.NewServer(
		ts.jobs,
		ts.docs,
		dispatcher.New(ts.queue, nil),
		ts.events,
		uuidgen.New(),
		systemclock.New(),
		cfg,
		nil,
	)
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	require.Equal(t, "ok", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitJob(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/v1/jobs", map[string]any{
		"urls":        []string{"https://rc.majlis.ir/fa/law/show/91015"},
		"max_attempts": 2,
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	jobID := body["job_id"]
	require.NotEmpty(t, jobID)

	job, err := ts.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, fetch.JobStatusQueued, job.Status)
	require.NotNil(t, job.Parameters.Policy)
	require.Equal(t, 2, job.Parameters.Policy.MaxAttempts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	item, err := ts.queue.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, jobID, item.JobID)
}

func TestSubmitJobValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "no urls", body: map[string]any{"urls": []string{}}},
		{name: "max_attempts too high", body: map[string]any{
			"urls": []string{"https://dastour.ir"}, "max_attempts": 11,
		}},
		{name: "zero timeout", body: map[string]any{
			"urls": []string{"https://dastour.ir"}, "timeout_seconds": 0,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/v1/jobs", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStandardJobs(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.StandardJobs = map[string]fetch.JobParameters{
			"daily-majlis": {URLs: []string{"https://rc.majlis.ir/fa/law/latest"}},
		}
	})

	rec := ts.do(t, http.MethodPost, "/v1/jobs/standard", map[string]string{"name": "daily-majlis"}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/jobs/standard", map[string]string{"name": "weekly"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/jobs/standard", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatusAndCancel(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/v1/jobs", map[string]any{
		"urls": []string{"https://qavanin.ir/Law/TreeText?IDS=1"},
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	jobID := created["job_id"]

	rec = ts.do(t, http.MethodGet, "/v1/jobs/"+jobID+"/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Job fetch.Job `json:"job"`
	}
	decode(t, rec, &status)
	require.Equal(t, fetch.JobStatusQueued, status.Job.Status)

	rec = ts.do(t, http.MethodPost, "/v1/jobs/"+jobID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	job, err := ts.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, fetch.JobStatusCanceled, job.Status)
	require.Equal(t, "canceled via API", job.ErrorText)

	// A second cancel is idempotent.
	rec = ts.do(t, http.MethodPost, "/v1/jobs/"+jobID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/jobs/nonexistent/status", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelFinishedJobConflicts(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/v1/jobs", map[string]any{
		"urls": []string{"https://dastour.ir/law?id=9"},
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	jobID := created["job_id"]

	require.NoError(t, ts.jobs.UpdateJobStatus(context.Background(), jobID,
		fetch.JobStatusSucceeded, "", fetch.JobCounters{Succeeded: 1}))

	rec = ts.do(t, http.MethodPost, "/v1/jobs/"+jobID+"/cancel", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	job, err := ts.jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, fetch.JobStatusSucceeded, job.Status)

	rec = ts.do(t, http.MethodPost, "/v1/jobs/missing/cancel", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobResult(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/v1/jobs", map[string]any{
		"urls": []string{"https://dotic.ir/portal/law/1"},
	}, nil)
	var created map[string]string
	decode(t, rec, &created)
	jobID := created["job_id"]

	require.NoError(t, ts.jobs.RecordResult(context.Background(), jobID, fetch.URLResult{
		URL:    "https://dotic.ir/portal/law/1",
		Result: fetch.Result{Success: true},
	}))

	rec = ts.do(t, http.MethodGet, "/v1/jobs/"+jobID+"/result", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Job     fetch.Job         `json:"job"`
		Results []fetch.URLResult `json:"results"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Results, 1)
	require.True(t, body.Results[0].Result.Success)
}

func TestDocumentsEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Documents []fetch.ContentRecord `json:"documents"`
	}
	decode(t, rec, &listing)
	require.Empty(t, listing.Documents)

	stored, _, err := ts.docs.Store(context.Background(), fetch.ContentRecord{
		URL:          "https://dastour.ir/law?id=12",
		CanonicalURL: "https://dastour.ir/law?id=12",
		ContentHash:  "abc123",
		RawText:      "<html>ماده ۱</html>",
		StrategyUsed: string(fetch.StrategyDirect),
		LegalScore:   40,
		FetchedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, stored)

	rec = ts.do(t, http.MethodGet, "/v1/documents", nil, nil)
	decode(t, rec, &listing)
	require.Len(t, listing.Documents, 1)
	require.Equal(t, "abc123", listing.Documents[0].ContentHash)

	rec = ts.do(t, http.MethodGet, "/v1/documents/abc123", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/documents/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/documents?limit=501", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsFeed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	require.NoError(t, ts.events.Consume(context.Background(), []progress.Event{{
		TS:       time.Now().UTC(),
		Stage:    progress.StageAttempt,
		URL:      "https://rc.majlis.ir/fa/law",
		Strategy: "DIRECT",
		Outcome:  "success",
	}}))

	rec := ts.do(t, http.MethodGet, "/v1/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Events []progress.Event `json:"events"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Events, 1)
	require.Equal(t, "https://rc.majlis.ir/fa/law", body.Events[0].URL)
}

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = "sekrit"
	})

	rec := ts.do(t, http.MethodGet, "/v1/documents", nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/documents", nil, map[string]string{"X-API-Key": "sekrit"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/documents?api_key=sekrit", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

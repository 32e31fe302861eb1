package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/longrun/am"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/longrun"
	"github.com/teranos/longrun/pulse/metrics"
	"github.com/teranos/longrun/pulse/registry"
	"github.com/teranos/longrun/pulse/timed"
)

var t0 = time.Unix(1_700_000_000, 0)

type testServer struct {
	srv     *Server
	svc     *longrun.Service
	clock   *job.ManualClock
	metrics *metrics.Collector
	http    *httptest.Server
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	log := zaptest.NewLogger(t).Sugar()
	clock := job.NewManualClock(t0)
	collector := metrics.NewCollector()

	kinds := job.NewKinds()
	timed.Register(kinds)
	adapter := registry.NewAdapter(registry.NewMemoryBackend(), kinds, longrun.ServiceName, log,
		registry.WithClock(clock.Now), registry.WithMetrics(collector))

	cfg := longrun.DefaultConfig()
	cfg.Seed = 1
	svc := longrun.New(cfg, adapter, log, longrun.WithClock(clock.Now), longrun.WithMetrics(collector))

	if opts.WatchInterval == 0 {
		opts.WatchInterval = 5 * time.Millisecond
	}
	opts.Metrics = collector
	srv := New(svc, opts, log)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{srv: srv, svc: svc, clock: clock, metrics: collector, http: ts}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, reader)
	require.NoError(t, err)
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) run(t *testing.T, jobs, minDuration int) RunResponse {
	t.Helper()
	body, err := json.Marshal(map[string]int{"number_of_jobs": jobs, "min_duration": minDuration})
	require.NoError(t, err)
	resp := ts.do(t, http.MethodPost, "/api/jobs", string(body))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	return decode[RunResponse](t, resp)
}

func TestRunEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	out := ts.run(t, 3, 10)
	require.Len(t, out.Jobs, 3)
	for i, j := range out.Jobs {
		assert.Equal(t, job.StatusStarted, j.Status)
		assert.True(t, j.Registered)
		assert.Equal(t, timed.Kind, j.Kind)
		assert.Equal(t, t0.Unix(), j.Start)
		assert.Equal(t, j.Start+j.Duration, j.End)
		assert.GreaterOrEqual(t, j.Duration, int64(10))
		assert.Contains(t, j.Name, "job ")
		_, err := uuid.Parse(j.ID)
		assert.NoError(t, err, "job %d", i)
	}
}

func TestRunEndpointRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"missing number_of_jobs", http.MethodPost, `{"min_duration": 3}`, http.StatusBadRequest},
		{"not json", http.MethodPost, `jobs please`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"number_of_jobs": 1, "jobs": 2}`, http.StatusBadRequest},
		{"negative count", http.MethodPost, `{"number_of_jobs": -1}`, http.StatusBadRequest},
		{"count above cap", http.MethodPost, `{"number_of_jobs": 1001}`, http.StatusBadRequest},
		{"largest count", http.MethodPost, `{"number_of_jobs": 4294967295}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, "/api/jobs", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestRunEndpointCapHint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := ts.do(t, http.MethodPost, "/api/jobs", `{"number_of_jobs": 4294967295}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "exceeds the limit of 1000")
	assert.Contains(t, body.Hint, "service.max_number_of_jobs")
	assert.Empty(t, ts.svc.Sets())
}

func TestRunEndpointThrottled(t *testing.T) {
	ts := newTestServer(t, Options{RunsPerMinute: 2})

	ts.run(t, 1, 1)
	ts.run(t, 1, 1)

	resp := ts.do(t, http.MethodPost, "/api/jobs", `{"number_of_jobs": 1}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestStatusEndpointFollowsClock(t *testing.T) {
	ts := newTestServer(t, Options{})
	j := ts.run(t, 1, 10).Jobs[0]

	status := func() StatusResponse {
		resp := ts.do(t, http.MethodGet, "/api/jobs/"+j.ID, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[StatusResponse](t, resp)
	}

	assert.Equal(t, job.StatusStarted, status().Status)

	ts.clock.Set(time.Unix(j.End, 0))
	assert.Equal(t, job.StatusStarted, status().Status, "end second is still running")

	ts.clock.Set(time.Unix(j.End+1, 0))
	assert.Equal(t, job.StatusSucceeded, status().Status)

	ts.clock.Set(time.Unix(j.Start-1, 0))
	assert.Equal(t, job.StatusError, status().Status, "clock behind start")
}

func TestStatusEndpointUnknownJob(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := ts.do(t, http.MethodGet, "/api/jobs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[StatusResponse](t, resp)
	assert.Equal(t, job.StatusError, body.Status)
	assert.Contains(t, body.Error, "not found")

	resp = ts.do(t, http.MethodGet, "/api/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResultsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	j := ts.run(t, 1, 5).Jobs[0]

	resp := ts.do(t, http.MethodGet, "/api/jobs/"+j.ID+"/results", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[ResultsResponse](t, resp)

	require.Len(t, out.Resources, 1)
	res := out.Resources[0]
	assert.Equal(t, longrun.ProtocolInline, res.Protocol)
	assert.Equal(t, longrun.ResultsTitle, res.Title)
	assert.Equal(t, j.Start, res.Data.Start)
	assert.Equal(t, j.End, res.Data.End)

	resp = ts.do(t, http.MethodGet, "/api/jobs/"+uuid.NewString()+"/results", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServiceEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := ts.do(t, http.MethodGet, "/api/service", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[ServiceResponse](t, resp)
	assert.Equal(t, longrun.ServiceName, info.Name)
	assert.Equal(t, longrun.ServiceAlias, info.Alias)
	assert.Equal(t, longrun.SynchronicityAsynchronousDetached, info.Synchronicity)
	assert.False(t, info.Closed)

	resp = ts.do(t, http.MethodGet, "/api/service/parameters", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	params := decode[[]longrun.ParameterDescription](t, resp)
	assert.NotEmpty(t, params)

	resp = ts.do(t, http.MethodPut, "/api/service", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCloseEndpointRefusedWhileRunning(t *testing.T) {
	ts := newTestServer(t, Options{})
	out := ts.run(t, 2, 10)

	resp := ts.do(t, http.MethodDelete, "/api/service", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	refused := decode[ErrorResponse](t, resp)
	assert.Contains(t, refused.Error, "in flight")
	assert.NotEmpty(t, refused.Hint)

	latest := out.Jobs[0].End
	for _, j := range out.Jobs {
		latest = max(latest, j.End)
	}
	ts.clock.Set(time.Unix(latest+1, 0))

	resp = ts.do(t, http.MethodDelete, "/api/service", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[ServiceResponse](t, resp)
	assert.True(t, info.Closed)
	assert.Zero(t, info.Jobs)

	resp = ts.do(t, http.MethodPost, "/api/jobs", `{"number_of_jobs": 1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "closed service refuses runs")

	// Records outlive the service
	resp = ts.do(t, http.MethodGet, "/api/jobs/"+out.Jobs[0].ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, job.StatusSucceeded, decode[StatusResponse](t, resp).Status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.run(t, 2, 1)

	resp := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "running", health.State)

	resp = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "longrun_jobs_created_total 2")
}

func TestMetricsDisabled(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	srv := New(nil, Options{}, log)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost"}})

	req, err := http.NewRequest(http.MethodOptions, ts.http.URL+"/api/jobs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := am.Defaults()
	c := metrics.NewCollector()

	opts := OptionsFromConfig(cfg, c)
	assert.Equal(t, time.Duration(cfg.Server.WatchIntervalMS)*time.Millisecond, opts.WatchInterval)
	assert.Equal(t, cfg.Server.RunsPerMinute, opts.RunsPerMinute)
	assert.Same(t, c, opts.Metrics)

	cfg.Metrics.Enabled = false
	assert.Nil(t, OptionsFromConfig(cfg, c).Metrics)
}

func TestServeAndStop(t *testing.T) {
	ts := newTestServer(t, Options{})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- ts.srv.Serve(listener) }()

	url := "http://" + listener.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ts.srv.Stop(ctx))
	assert.NoError(t, <-served)
	assert.Equal(t, ServerStateStopped, ts.srv.getState())

	// Handlers refuse work once draining
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString(`{"number_of_jobs": 1}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFindAvailablePort(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()
	taken := listener.Addr().(*net.TCPAddr).Port

	port, err := findAvailablePort(taken)
	require.NoError(t, err)
	assert.NotEqual(t, taken, port)
	assert.LessOrEqual(t, port, taken+10)
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gilchrisn/influence-diffusion/pkg/config"
	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
	"github.com/gilchrisn/influence-diffusion/pkg/models"
	"github.com/gilchrisn/influence-diffusion/pkg/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	jobs := service.NewJobService(
		config.JobConfig{MaxWorkers: 2, TrialWorkers: 2, JobTimeout: time.Minute, ResultTTL: time.Hour, MaxNodes: 1000, MaxTrials: 100},
		config.DefaultsConfig{TMax: 5, P: 0.5, Infected: 2, Vaccinated: 2, Trials: 3},
		service.NewMemoryStore(time.Hour),
	)
	t.Cleanup(func() { jobs.Close() })
	return NewRouter(NewHandlers(jobs), nil)
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealthAndStrategies(t *testing.T) {
	server := newTestServer(t)

	rec, env := do(t, server, "GET", "/api/v1/health", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("health check failed: %d %s", rec.Code, rec.Body.String())
	}
	var health models.HealthResponse
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Store != "memory" {
		t.Errorf("unexpected health %+v", health)
	}

	rec, env = do(t, server, "GET", "/api/v1/strategies", "")
	var strategies []map[string]string
	if err := json.Unmarshal(env.Data, &strategies); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(strategies) != 3 || strategies[1]["name"] != "degree" {
		t.Errorf("unexpected strategies %v", strategies)
	}
}

func TestExperimentLifecycle(t *testing.T) {
	server := newTestServer(t)

	body := `{"graphs":[{"type":"erdos_renyi","nodes":50,"meanDegree":2}],"strategies":["random","degree"],"seed":3}`
	rec, env := do(t, server, "POST", "/api/v1/experiments", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted models.SubmitResponse
	if err := json.Unmarshal(env.Data, &submitted); err != nil {
		t.Fatal(err)
	}
	if submitted.JobID == "" {
		t.Fatal("expected job ID")
	}

	deadline := time.Now().Add(30 * time.Second)
	var job models.Job
	for time.Now().Before(deadline) {
		_, env = do(t, server, "GET", "/api/v1/experiments/"+submitted.JobID, "")
		if err := json.Unmarshal(env.Data, &job); err != nil {
			t.Fatal(err)
		}
		if job.Status.Finished() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s (%s)", job.Status, job.Error)
	}

	rec, env = do(t, server, "GET", "/api/v1/experiments/"+submitted.JobID+"/result", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result experiment.Comparison
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Cells) != 2 || len(result.Cells[0].Averaged) != 6 {
		t.Errorf("unexpected result cells %+v", result.Cells)
	}

	rec, env = do(t, server, "GET", "/api/v1/experiments?page=1&limit=10", "")
	var listing struct {
		Jobs  []models.Job `json:"jobs"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || listing.Total != 1 || len(listing.Jobs) != 1 {
		t.Errorf("unexpected listing %+v", listing)
	}

	rec, _ = do(t, server, "POST", "/api/v1/experiments/"+submitted.JobID+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Errorf("cancelling a finished job should succeed, got %d", rec.Code)
	}
}

func TestExperimentErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed body", "POST", "/api/v1/experiments", `{"graphs":`, http.StatusBadRequest},
		{"unknown field", "POST", "/api/v1/experiments", `{"graph":[]}`, http.StatusBadRequest},
		{"invalid parameters", "POST", "/api/v1/experiments", `{"graphs":[{"type":"erdos_renyi","nodes":5000}]}`, http.StatusBadRequest},
		{"unknown job", "GET", "/api/v1/experiments/missing", "", http.StatusNotFound},
		{"unknown result", "GET", "/api/v1/experiments/missing/result", "", http.StatusNotFound},
		{"unknown cancel", "POST", "/api/v1/experiments/missing/cancel", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, server, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if env.Success {
				t.Error("expected unsuccessful response")
			}
		})
	}

	req := httptest.NewRequest("POST", "/api/v1/experiments", strings.NewReader("graphs"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics endpoint, got %d", rec.Code)
	}

	req := httptest.NewRequest("OPTIONS", "/api/v1/experiments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := LoggingMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/vallemsec/spectra-web/internal/config"
	"github.com/vallemsec/spectra-web/internal/render"
	"github.com/vallemsec/spectra-web/internal/scanner"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// scannerStub records every request made to the fake scanner service.
type scannerStub struct {
	mu      sync.Mutex
	paths   []string
	targets []string
}

func (s *scannerStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode scanner request: %v", err)
		}
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.targets = append(s.targets, body.Target)
		s.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, scanner.EmailLeaksPath) {
			_, _ = w.Write([]byte(`[{"service":"LinkedIn","date":"2021-06-22"}]`))
			return
		}
		_, _ = w.Write([]byte(`{"advice":"Looks fine","results":[{"name":"SPF","ai_advice":"Add SPF record"}]}`))
	}
}

func (s *scannerStub) calls() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...), append([]string(nil), s.targets...)
}

func newTestServer(t *testing.T, cfg config.Config, source scanner.Source) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	pipeline := render.NewPipeline(cfg, source, nil, logger)
	return NewServer(Config{
		Reports: pipeline,
		Health:  ConfigHealth{Config: cfg},
		Logger:  logger,
	})
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteErrorInternal(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := &Server{cfg: Config{Logger: zap.New(core)}}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.writeError(rr, req, http.StatusInternalServerError, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") || strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("expected sanitized message, got %s", rr.Body.String())
	}
	if logs.FilterMessage("internal_server_error").Len() != 1 {
		t.Fatal("expected internal error to be logged")
	}
}

func TestWriteErrorClient(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	s.methodNotAllowed(rr, httptest.NewRequest(http.MethodPut, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestWriteStreamChunk(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	if !s.writeStreamChunk(rr, []byte("hello")) {
		t.Fatal("expected writeStreamChunk to succeed")
	}
	if rr.Body.String() != "hello" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	if s.writeStreamChunk(&failingWriter{}, []byte("fail")) {
		t.Fatalf("expected writeStreamChunk to fail")
	}
}

type failingWriter struct{}

func (f *failingWriter) Header() http.Header { return http.Header{} }
func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}
func (f *failingWriter) WriteHeader(statusCode int) {}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		readyCode  int
		healthCode int
	}{
		{"fixture", config.Config{Mode: config.ModeFixture}, http.StatusOK, http.StatusOK},
		{"live with endpoint", config.Config{Mode: config.ModeLive, ScannerEndpoint: "https://spectra.example.test"}, http.StatusOK, http.StatusOK},
		{"live without endpoint", config.Config{Mode: config.ModeLive}, http.StatusServiceUnavailable, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Config{Health: ConfigHealth{Config: tt.cfg}})

			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			if rr.Code != tt.healthCode {
				t.Errorf("health: expected %d, got %d", tt.healthCode, rr.Code)
			}

			rr = httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
			if rr.Code != tt.readyCode {
				t.Errorf("ready: expected %d, got %d", tt.readyCode, rr.Code)
			}
		})
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := NewServer(Config{CORSOrigins: []string{"https://ismijnbedrijfveilig.nl"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://ismijnbedrijfveilig.nl")
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("expected request id echoed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://ismijnbedrijfveilig.nl" {
		t.Errorf("unexpected CORS origin %q", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/scans", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unexpected preflight response %d %q", rr.Code, rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(Config{RateLimit: 1, RateBurst: 1})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected throttling after burst, got %v", codes)
	}
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	srv := NewServer(Config{RateLimit: 1, RateBurst: 1})

	var throttled int
	for i := range 50 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	if throttled < 45 {
		t.Fatalf("rotating X-Forwarded-For should not reset the limit, %d of 50 throttled", throttled)
	}
}

func TestRateLimitTrustedProxy(t *testing.T) {
	srv := NewServer(Config{RateLimit: 1, RateBurst: 1, TrustProxy: true})

	for i := range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("client %d behind the proxy should have its own limit, got %d", i, rr.Code)
		}
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded ignored", remote: "192.0.2.1:1234", forwarded: "198.51.100.2, 10.0.0.1", want: "192.0.2.1"},
		{name: "forwarded trusted", remote: "192.0.2.1:1234", forwarded: "198.51.100.2, 10.0.0.1", trustProxy: true, want: "198.51.100.2"},
		{name: "trusted without header", remote: "192.0.2.1:1234", trustProxy: true, want: "192.0.2.1"},
		{name: "ipv6", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "no port", remote: "192.0.2.9", want: "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientAddr(req, tt.trustProxy); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(Config{Logger: zap.New(core)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "abc123" || fields["status"] != int64(http.StatusOK) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestScanJobsAPI(t *testing.T) {
	runner := &stubRunner{}
	jobs := NewJobManager(runner, nil)
	defer jobs.Close(context.Background())
	srv := NewServer(Config{Jobs: jobs})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(`{"domain":"example.com","email":""}`)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var created Job
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if created.Status != JobPending || rr.Header().Get("Location") != "/api/v1/scans/"+created.ID {
		t.Fatalf("unexpected job %+v location %q", created, rr.Header().Get("Location"))
	}

	jobs.Wait()

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+created.ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var fetched Job
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if fetched.Status != JobSuccess || fetched.Report == nil || fetched.Report.Scan.State != render.StateSuccess {
		t.Fatalf("unexpected settled job %+v", fetched)
	}
	if fetched.Report.Leaks != nil {
		t.Error("expected no email section for empty email")
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scans?limit=5", nil))
	var listed []Job
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("expected one listed job, got %d (%v)", len(listed), err)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scans/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(`{`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rr.Code)
	}
}

func TestScanJobsUnavailable(t *testing.T) {
	srv := NewServer(Config{})
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/scans", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without job service, got %d", rr.Code)
	}
}

func TestScanJobsTooMany(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	jobs := NewJobManager(runner, nil, WithMaxRunning(1))
	defer jobs.Close(context.Background())
	srv := NewServer(Config{Jobs: jobs})

	post := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(`{"domain":"example.com"}`)))
		return rr
	}

	if rr := post(); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	rr := post()
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while the job slot is taken, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rr.Body.String(), "too many scan jobs") {
		t.Errorf("unexpected body %s", rr.Body.String())
	}

	close(runner.release)
	jobs.Wait()
	if rr := post(); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 once the slot is free, got %d", rr.Code)
	}
}

func TestScanJobStreamOutlivesWriteTimeout(t *testing.T) {
	runner := &stubRunner{}
	jobs := NewJobManager(runner, nil)
	defer jobs.Close(context.Background())

	ts := httptest.NewUnstartedServer(NewServer(Config{Jobs: jobs}))
	ts.Config.WriteTimeout = 200 * time.Millisecond
	ts.Start()
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/scans-stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	time.Sleep(400 * time.Millisecond)
	if _, err := jobs.StartJob(context.Background(), JobRequest{Domain: "example.com"}); err != nil {
		t.Fatalf("StartJob returned error: %v", err)
	}

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 64*1024), 1<<20)
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: ") {
			return
		}
	}
	t.Fatalf("stream ended before any event: %v", lines.Err())
}

func TestScanJobStream(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	jobs := NewJobManager(runner, nil)
	defer jobs.Close(context.Background())

	ts := httptest.NewServer(NewServer(Config{Jobs: jobs}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/scans-stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	if _, err := jobs.StartJob(context.Background(), JobRequest{Domain: "example.com"}); err != nil {
		t.Fatalf("StartJob returned error: %v", err)
	}

	var statuses []JobStatus
	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 64*1024), 1<<20)
	for lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &job); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		statuses = append(statuses, job.Status)
		if job.Status == JobRunning {
			close(runner.release)
		}
		if job.Status.Done() {
			break
		}
	}
	want := []JobStatus{JobPending, JobRunning, JobSuccess}
	if len(statuses) != len(want) {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, statuses)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := NewServer(Config{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "scanner_requests_total 0\n")
	})})
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "scanner_requests_total") {
		t.Fatalf("unexpected metrics response %d %q", rr.Code, rr.Body.String())
	}
}

func parseDoc(t *testing.T, body io.Reader) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

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

	"go.uber.org/goleak"

	"github.com/foliochat/folio/internal/chat"
	"github.com/foliochat/folio/internal/ingest"
	"github.com/foliochat/folio/internal/log"
	"github.com/foliochat/folio/internal/retrieve"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubChat struct {
	answer *chat.Answer
	err    error
}

func (s *stubChat) Ask(_ context.Context, _ string) (*chat.Answer, error) {
	return s.answer, s.err
}

type stubPipeline struct {
	report *ingest.Report
	err    error
	mode   ingest.Mode
}

func (s *stubPipeline) Run(_ context.Context, mode ingest.Mode) (*ingest.Report, error) {
	s.mode = mode
	return s.report, s.err
}

type stubIndex struct {
	total   int
	byType  map[string]int
	countEr error
}

func (s *stubIndex) Count(_ context.Context) (int, error) {
	return s.total, s.countEr
}

func (s *stubIndex) CountBySourceType(_ context.Context) (map[string]int, error) {
	return s.byType, s.countEr
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Chat == nil {
		cfg.Chat = &stubChat{answer: &chat.Answer{Response: "ok", Citations: []retrieve.Citation{}}}
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = &stubPipeline{report: &ingest.Report{Mode: ingest.ModeFullRebuild}}
	}
	if cfg.Index == nil {
		cfg.Index = &stubIndex{total: 0, byType: map[string]int{}}
	}
	cfg.Logger = log.NewNop()

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	answer := &chat.Answer{
		Response: "They work in Go.",
		Citations: []retrieve.Citation{
			{Title: "Profile", Source: "https://example.com/profile"},
		},
		Grounded: true,
	}
	srv := newTestServer(t, ServerConfig{Chat: &stubChat{answer: answer}})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"What skills?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got chat.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Response != "They work in Go." || !got.Grounded || len(got.Citations) != 1 {
		t.Errorf("unexpected answer: %+v", got)
	}
}

func TestChatEndpointValidation(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty message", `{"message":""}`, http.StatusBadRequest},
		{"whitespace message", `{"message":"   "}`, http.StatusBadRequest},
		{"malformed json", `{"message":`, http.StatusBadRequest},
		{"empty body", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("expected error envelope, got: %s", rec.Body.String())
			}
		})
	}
}

func TestChatEndpointGenerationFailure(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Chat: &stubChat{err: errors.New("model down")}})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestIngestEndpoint(t *testing.T) {
	pipeline := &stubPipeline{report: &ingest.Report{
		Mode:         ingest.ModeIncremental,
		Succeeded:    []string{"a", "b"},
		Failed:       []ingest.Failure{},
		TotalChunks:  7,
		TotalEntries: 7,
		Duration:     1500 * time.Millisecond,
	}}
	srv := newTestServer(t, ServerConfig{Pipeline: pipeline})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?mode=incremental", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if pipeline.mode != ingest.ModeIncremental {
		t.Errorf("expected incremental mode, got %q", pipeline.mode)
	}

	var got ingest.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if got.TotalEntries != 7 || len(got.Succeeded) != 2 {
		t.Errorf("unexpected report: %+v", got)
	}
	if !strings.Contains(rec.Body.String(), `"duration_ms":1500`) {
		t.Errorf("expected duration in milliseconds, got %s", rec.Body.String())
	}
}

func TestIngestEndpointDefaultsToFullRebuild(t *testing.T) {
	pipeline := &stubPipeline{report: &ingest.Report{Mode: ingest.ModeFullRebuild}}
	srv := newTestServer(t, ServerConfig{Pipeline: pipeline})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if pipeline.mode != ingest.ModeFullRebuild {
		t.Errorf("expected full rebuild mode, got %q", pipeline.mode)
	}
}

func TestIngestEndpointInvalidMode(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest?mode=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestEndpointConflict(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Pipeline: &stubPipeline{err: ingest.ErrRunInProgress}})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ingest", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Index: &stubIndex{
		total:  12,
		byType: map[string]int{"article": 7, "resume_pdf": 5},
	}})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if got.TotalEntries != 12 || got.BySourceType["article"] != 7 {
		t.Errorf("unexpected stats: %+v", got)
	}
}

func TestStatsEndpointIndexUnavailable(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Index: &stubIndex{countEr: errors.New("connection refused")}})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	// Nil pool reports ready.
	rec = doRequest(t, srv, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready: expected 200, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("expected caller-supplied request id echoed, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, ServerConfig{CORSOrigins: []string{"https://portfolio.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "https://portfolio.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example.com" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	// Unknown origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin should not receive CORS headers")
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateBurst: 2})

	var lastCode int
	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
		lastCode = rec.Code
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhausted, got %d", lastCode)
	}

	// Health probes bypass the limiter.
	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health should bypass rate limiting, got %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(log.NewNop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	req.Header.Set("X-Real-IP", "203.0.113.7")

	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Errorf("untrusted proxy: expected RemoteAddr IP, got %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.7" {
		t.Errorf("trusted proxy: expected X-Real-IP, got %q", got)
	}

	req.Header.Del("X-Real-IP")
	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	if got := clientIP(req, true); got != "198.51.100.2" {
		t.Errorf("trusted proxy: expected first X-Forwarded-For IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	if got := clientIP(req, true); got != "10.0.0.1" {
		t.Errorf("invalid header should fall back to RemoteAddr, got %q", got)
	}
}

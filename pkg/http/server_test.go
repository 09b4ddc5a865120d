package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerRecordsRequestMetrics(t *testing.T) {
	s := NewServer(nil, WithCORS(false))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// the first request must show up in the second scrape
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatal("request counter not exported after a served request")
	}
	if !strings.Contains(body, "http_request_duration_seconds") {
		t.Fatal("request duration histogram not exported")
	}
}

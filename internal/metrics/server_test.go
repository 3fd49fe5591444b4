package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fixedCounter int

func (c fixedCounter) Active() int { return int(c) }

func TestServer_Health(t *testing.T) {
	s := NewServer(fixedCounter(2), 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["active_polls"] != float64(2) {
		t.Errorf("active_polls = %v, want 2", body["active_polls"])
	}
}

func TestServer_Metrics(t *testing.T) {
	RetriesTotal.WithLabelValues("fetch").Inc()
	s := NewServer(fixedCounter(0), 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "predictctl_retries_total") {
		t.Errorf("metrics output missing predictctl_retries_total")
	}
}

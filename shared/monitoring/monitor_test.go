package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"credibility-stack/internal/models"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor()

	if !m.IsHealthy() {
		t.Error("new monitor should be healthy")
	}
	if got := m.GetStatusSummary(); got != "No runs yet" {
		t.Errorf("GetStatusSummary() = %q, want %q", got, "No runs yet")
	}

	m.RecordCriticalFailure(errors.New("quota exceeded"), time.Second)
	if m.IsHealthy() {
		t.Error("monitor should be unhealthy after a critical failure")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "Last run failed") || !strings.Contains(got, "quota exceeded") {
		t.Errorf("GetStatusSummary() = %q", got)
	}

	m.RecordPartialFailure(errors.New("one source down"), time.Second)
	if m.IsHealthy() {
		t.Error("partial failure should not change health")
	}

	m.RecordSuccess("analyzed 3 videos", time.Second)
	if !m.IsHealthy() {
		t.Error("monitor should be healthy after success")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "analyzed 3 videos") {
		t.Errorf("GetStatusSummary() = %q", got)
	}
}

func TestMonitorConcurrentAccess(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.RecordSuccess("ok", time.Millisecond)
			m.SetLastRun(&models.RunRecord{Keyword: "k"})
		}()
		go func() {
			defer wg.Done()
			_ = m.IsHealthy()
			_ = m.GetStatusSummary()
			_ = m.LastRun()
		}()
	}
	wg.Wait()

	if m.LastRun() == nil {
		t.Error("LastRun() = nil after concurrent writes")
	}
}

func TestHealthServerRoutes(t *testing.T) {
	m := NewMonitor()
	server := httptest.NewServer(NewHealthServer(m, "0").Routes())
	defer server.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		return resp.StatusCode, string(body)
	}

	if code, body := get("/health"); code != http.StatusOK || !strings.HasPrefix(body, "OK") {
		t.Errorf("/health = %d %q", code, body)
	}
	if code, _ := get("/last"); code != http.StatusNotFound {
		t.Errorf("/last before any run = %d, want 404", code)
	}

	m.RecordCriticalFailure(errors.New("boom"), time.Second)
	if code, body := get("/health"); code != http.StatusServiceUnavailable || !strings.Contains(body, "boom") {
		t.Errorf("/health after failure = %d %q", code, body)
	}
	if code, body := get("/status"); code != http.StatusOK || !strings.Contains(body, "boom") {
		t.Errorf("/status = %d %q", code, body)
	}

	m.SetLastRun(&models.RunRecord{Keyword: "moon landing", Sentiment: "positive", AvgViews: 150, Themes: []string{"moon"}})
	code, body := get("/last")
	if code != http.StatusOK {
		t.Fatalf("/last = %d, want 200", code)
	}
	var rec models.RunRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("/last body is not JSON: %v", err)
	}
	if rec.Keyword != "moon landing" || rec.Sentiment != "positive" || rec.AvgViews != 150 {
		t.Errorf("/last = %+v", rec)
	}

	if code, _ := get("/nope"); code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", code)
	}
}

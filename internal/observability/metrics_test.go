package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerExposesSessionOutcomes(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveSession("recognize", "success", 1500*time.Millisecond)
	m.AudioBytes.WithLabelValues("in").Add(3200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`test_realtime_session_outcomes_total{operation="recognize",outcome="success"} 1`,
		`test_audio_bytes_total{direction="in"} 3200`,
		`test_realtime_request_duration_seconds_count{operation="recognize"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsInstancesDoNotCollide(t *testing.T) {
	NewMetrics("same")
	NewMetrics("same")
}

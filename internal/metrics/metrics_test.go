package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTP_BeginRecords(t *testing.T) {
	t.Parallel()

	m := NewHTTP("flasheng_test")
	done := m.Begin("GET", "/cart")
	if got := testutil.ToFloat64(m.inflight); got != 1 {
		t.Fatalf("inflight=%v", got)
	}
	done("ok")
	m.Begin("GET", "/cart")("unauthorized")

	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Fatalf("inflight after done=%v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/cart", "ok")); got != 1 {
		t.Fatalf("ok count=%v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/cart", "unauthorized")); got != 1 {
		t.Fatalf("401 count=%v", got)
	}
}

func TestHTTP_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *HTTP
	m.Begin("GET", "/x")("ok")
}

func TestHTTP_Handler(t *testing.T) {
	t.Parallel()

	m := NewHTTP("flasheng_test")
	m.Begin("POST", "/auth/login")("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `flasheng_test_http_requests_total{category="ok",method="POST",route="/auth/login"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", body)
	}
}

package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newInstrumentedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/metrics", MetricsHandler())
	return router
}

func TestMetricsMiddleware_CountsRequests(t *testing.T) {
	resetGlobalMetrics()
	router := newInstrumentedRouter()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}

	metrics := GetMetrics()
	if metrics.RequestCount != 4 {
		t.Errorf("Expected 4 requests, got %d", metrics.RequestCount)
	}
	if metrics.ErrorCount != 1 {
		t.Errorf("Expected 1 error, got %d", metrics.ErrorCount)
	}
	if metrics.ActiveRequests != 0 {
		t.Errorf("Expected no active requests after completion, got %d", metrics.ActiveRequests)
	}
	if metrics.StatusCodes["200"] != 3 || metrics.StatusCodes["500"] != 1 {
		t.Errorf("Unexpected status code counts: %v", metrics.StatusCodes)
	}
	if metrics.Endpoints["GET /ok"] != 3 {
		t.Errorf("Expected 3 hits on GET /ok, got %d", metrics.Endpoints["GET /ok"])
	}
}

func TestMetricsHandler_ServesSnapshot(t *testing.T) {
	resetGlobalMetrics()
	router := newInstrumentedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body == "" || body[0] != '{' {
		t.Errorf("Expected a JSON snapshot, got %q", body)
	}
}

func TestGetMetrics_EmptyState(t *testing.T) {
	resetGlobalMetrics()

	metrics := GetMetrics()
	if metrics.RequestCount != 0 || metrics.ErrorCount != 0 {
		t.Errorf("Expected zeroed counters, got %+v", metrics)
	}
	if metrics.AvgLatencyMs != 0 {
		t.Errorf("Expected zero latency with no requests, got %v", metrics.AvgLatencyMs)
	}
	if metrics.Goroutines <= 0 {
		t.Error("Expected a positive goroutine count")
	}
}

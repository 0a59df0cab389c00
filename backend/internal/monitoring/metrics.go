package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics is a point-in-time snapshot of the in-process request counters.
type Metrics struct {
	RequestCount   int64            `json:"request_count"`
	ErrorCount     int64            `json:"error_count"`
	ActiveRequests int64            `json:"active_requests"`
	StatusCodes    map[string]int64 `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoints"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	Goroutines     int              `json:"goroutines"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
}

type metricsState struct {
	mu             sync.Mutex
	requestCount   int64
	errorCount     int64
	activeRequests int64
	statusCodes    map[string]int64
	endpoints      map[string]int64
	totalLatency   time.Duration
	startedAt      time.Time
}

var global = newMetricsState()

func newMetricsState() *metricsState {
	return &metricsState{
		statusCodes: make(map[string]int64),
		endpoints:   make(map[string]int64),
		startedAt:   time.Now(),
	}
}

func resetGlobalMetrics() {
	global = newMetricsState()
}

// MetricsMiddleware counts every request, its endpoint, its status class,
// and the time it took.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := global

		state.mu.Lock()
		state.activeRequests++
		state.mu.Unlock()

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		endpoint := c.Request.Method + " " + c.FullPath()
		status := strconv.Itoa(c.Writer.Status())

		state.mu.Lock()
		state.activeRequests--
		state.requestCount++
		state.totalLatency += elapsed
		state.statusCodes[status]++
		state.endpoints[endpoint]++
		if c.Writer.Status() >= http.StatusInternalServerError {
			state.errorCount++
		}
		state.mu.Unlock()
	}
}

// GetMetrics copies the counters out under the lock.
func GetMetrics() Metrics {
	state := global

	state.mu.Lock()
	defer state.mu.Unlock()

	statusCodes := make(map[string]int64, len(state.statusCodes))
	for k, v := range state.statusCodes {
		statusCodes[k] = v
	}
	endpoints := make(map[string]int64, len(state.endpoints))
	for k, v := range state.endpoints {
		endpoints[k] = v
	}

	var avgLatency float64
	if state.requestCount > 0 {
		avgLatency = float64(state.totalLatency.Milliseconds()) / float64(state.requestCount)
	}

	return Metrics{
		RequestCount:   state.requestCount,
		ErrorCount:     state.errorCount,
		ActiveRequests: state.activeRequests,
		StatusCodes:    statusCodes,
		Endpoints:      endpoints,
		AvgLatencyMs:   avgLatency,
		Goroutines:     runtime.NumGoroutine(),
		UptimeSeconds:  time.Since(state.startedAt).Seconds(),
	}
}

func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, GetMetrics())
	}
}

package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Metrics is a point-in-time copy of the request counters.
type Metrics struct {
	RequestCount    int64            `json:"request_count"`
	AverageDuration float64          `json:"avg_request_duration_ms"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
}

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

// StatsFunc exposes component stats (cache, database pool) on /metrics.
type StatsFunc func() map[string]interface{}

type Monitor struct {
	mu             sync.RWMutex
	requestCount   int64
	activeRequests int64
	errorCount     int64
	totalDuration  time.Duration
	statusCodes    map[string]int64
	endpoints      map[string]int64
	startTime      time.Time
	lastRequest    time.Time

	checkTimeout time.Duration
	checks       map[string]HealthCheckFunc
	stats        map[string]StatsFunc
}

func NewMonitor(checkTimeout time.Duration) *Monitor {
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &Monitor{
		statusCodes:  make(map[string]int64),
		endpoints:    make(map[string]int64),
		startTime:    time.Now(),
		checkTimeout: checkTimeout,
		checks:       make(map[string]HealthCheckFunc),
		stats:        make(map[string]StatsFunc),
	}
}

func (m *Monitor) RegisterHealthCheck(name string, check HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

func (m *Monitor) RegisterStats(name string, stats StatsFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[name] = stats
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.activeRequests++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.requestCount++
		m.activeRequests--
		m.totalDuration += duration
		m.lastRequest = time.Now()
		if statusCode >= http.StatusBadRequest {
			m.errorCount++
		}
		m.statusCodes[strconv.Itoa(statusCode)]++
		m.endpoints[c.Request.Method+" "+path]++
	}
}

func (m *Monitor) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := Metrics{
		RequestCount:   m.requestCount,
		ActiveRequests: m.activeRequests,
		ErrorCount:     m.errorCount,
		StatusCodes:    make(map[string]int64, len(m.statusCodes)),
		Endpoints:      make(map[string]int64, len(m.endpoints)),
		StartTime:      m.startTime,
		LastRequest:    m.lastRequest,
	}
	if m.requestCount > 0 {
		avg := m.totalDuration / time.Duration(m.requestCount)
		snapshot.AverageDuration = float64(avg) / float64(time.Millisecond)
	}
	for k, v := range m.statusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range m.endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

// RunHealthChecks executes every registered check with its own timeout.
func (m *Monitor) RunHealthChecks(ctx context.Context) []HealthCheck {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	checks := make(map[string]HealthCheckFunc, len(m.checks))
	for name, check := range m.checks {
		names = append(names, name)
		checks[name] = check
	}
	m.mu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
		err := checks[name](checkCtx)
		cancel()

		result := HealthCheck{Name: name, Status: StatusHealthy, LastRun: time.Now()}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		}
		results = append(results, result)
	}
	return results
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemMetrics{
		Uptime: time.Since(m.startTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(mem.Alloc),
			TotalAlloc:   bToMb(mem.TotalAlloc),
			Sys:          bToMb(mem.Sys),
			NumGC:        mem.NumGC,
			NextGC:       bToMb(mem.NextGC),
			GCPauseTotal: time.Duration(mem.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		components := make(map[string]interface{}, len(m.stats))
		for name, stats := range m.stats {
			components[name] = stats()
		}
		m.mu.RUnlock()

		c.JSON(http.StatusOK, gin.H{
			"application": m.Snapshot(),
			"system":      m.SystemMetrics(),
			"components":  components,
			"timestamp":   time.Now(),
		})
	}
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunHealthChecks(c.Request.Context())

		overall := StatusHealthy
		for _, check := range checks {
			if check.Status != StatusHealthy {
				overall = StatusUnhealthy
				break
			}
		}

		status := http.StatusOK
		if overall != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now(),
			"checks":    checks,
			"uptime":    time.Since(m.startTime).Round(time.Second).String(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range m.RunHealthChecks(c.Request.Context()) {
			if check.Status != StatusHealthy {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "not ready",
					"failing":   check.Name,
					"timestamp": time.Now(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now()})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    time.Since(m.startTime).Round(time.Second).String(),
		})
	}
}

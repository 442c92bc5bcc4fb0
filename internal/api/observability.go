package api

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"sparkfx/internal/config"
	"sparkfx/internal/engine"
	"sparkfx/internal/particle"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (labels are effect, kind or route names,
// never client input that failed validation)
var (
	// Engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fx_tick_duration_seconds",
		Help:    "Time spent in one engine tick (update, commands, compose)",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0166, 0.033},
	})

	particleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fx_particles",
		Help: "Live particles across all kinds",
	})

	blitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fx_frame_blits",
		Help: "Sprites composited in the last frame",
	})

	drawErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fx_draw_errors_total",
		Help: "Frames aborted by a draw error",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_commands_total",
		Help: "Commands submitted through the API",
	}, []string{"op"})

	spawnedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_spawned_particles_total",
		Help: "Particles spawned by API requests",
	}, []string{"effect"})

	// Render table metrics
	tableBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_table_builds_total",
		Help: "Render table builds",
	}, []string{"kind", "result"})

	tableBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fx_table_build_duration_seconds",
		Help:    "Time spent painting one render table",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	tableCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fx_table_cells",
		Help: "Sprites held by all render tables",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Requests rejected by rate limiter, auth, queue or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "auth", "queue_full", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be loopback in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// ObservabilityConfigFrom converts the debug configuration
func ObservabilityConfigFrom(cfg config.DebugConfig) ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:       cfg.Enabled,
		ListenAddr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}
}

// DebugHandler returns the pprof, metrics and health endpoints
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	// pprof endpoints for profiling table builds and the tick loop
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to loopback only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLoopback(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	handler := DebugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

func isLoopback(addr string) bool {
	for _, p := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if len(addr) > len(p) && addr[:len(p)] == p {
			return true
		}
	}
	return false
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency per route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		RecordRequest(r.Method, endpoint, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes the websocket upgrade through to the underlying writer.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// ObserveEngine records every tick of e.
func ObserveEngine(e *engine.Engine) {
	e.OnTick(RecordTick)
}

// ObserveTables records every table build of c.
func ObserveTables(c *particle.TableCache) {
	c.OnBuild(func(kind string, cells int, took time.Duration, err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		tableBuilds.WithLabelValues(kind, result).Inc()
		tableBuildDuration.Observe(took.Seconds())
		tableCells.Add(float64(cells))
	})
}

// RecordTick records tick timing and population for metrics
func RecordTick(st engine.TickStats) {
	tickDuration.Observe(st.Duration.Seconds())
	particleCount.Set(float64(st.Particles))
	blitCount.Set(float64(st.Blits))
	if st.Err != nil {
		drawErrors.Inc()
	}
}

// RecordCommand counts a submitted command
func RecordCommand(op string) {
	commandsTotal.WithLabelValues(op).Inc()
}

// RecordSpawn counts particles spawned by a request
func RecordSpawn(effect string, n int) {
	spawnedTotal.WithLabelValues(effect).Add(float64(n))
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

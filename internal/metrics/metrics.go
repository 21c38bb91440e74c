// Package metrics expone las métricas Prometheus del servicio y el middleware
// que instrumenta los requests HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Domain metrics
	tokensIssuedTotal  *prometheus.CounterVec
	loginFailuresTotal prometheus.Counter
	refreshReplayTotal prometheus.Counter
)

// Register inicializa y registra las métricas. Devuelve el handler para
// /metrics. Llamadas repetidas (tests) reutilizan el registro previo.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		tokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_tokens_issued_total",
			Help: "Pares de tokens emitidos por grant type",
		}, []string{"grant_type"})

		loginFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "login_failures_total",
			Help: "Intentos de login rechazados (credenciales o captcha)",
		})

		refreshReplayTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refresh_replays_total",
			Help: "Refresh tokens reusados detectados (familia revocada)",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			tokensIssuedTotal,
			loginFailuresTotal,
			refreshReplayTotal,
		} {
			if err := registerCollector(reg, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	return promhttp.Handler(), nil
}

// TokensIssued registra un par emitido para el grant dado.
func TokensIssued(grantType string) {
	if tokensIssuedTotal != nil {
		tokensIssuedTotal.WithLabelValues(grantType).Inc()
	}
}

// LoginFailure registra un intento de login rechazado.
func LoginFailure() {
	if loginFailuresTotal != nil {
		loginFailuresTotal.Inc()
	}
}

// RefreshReplay registra una detección de reuso de refresh token.
func RefreshReplay() {
	if refreshReplayTotal != nil {
		refreshReplayTotal.Inc()
	}
}

// WithMetrics instrumenta requests HTTP (contadores y latencia).
func WithMetrics(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil || httpRequestDuration == nil {
			next.ServeHTTP(w, r)
			return
		}
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// normalizePath colapsa los segmentos variables para acotar cardinalidad.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "/account/") && p != "/account/register" {
		return "/account/{username}"
	}
	return p
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

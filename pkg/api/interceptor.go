package api

import (
	"net/http"
	"strconv"

	"github.com/cuemby/bsgo/pkg/metrics"
)

// requestMetrics wraps next with route/status instrumentation, grounded on
// the teacher's gRPC interceptor pattern (wrap the handler, instrument
// before/after) generalized to net/http's middleware shape.
func requestMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, route)
	}
}

// statusRecorder captures the status code written by the wrapped handler so
// requestMetrics can label it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

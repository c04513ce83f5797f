package middleware

import (
	"net/http"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/metrics"
)

// Metrics records each request under its ServeMux pattern so path parameters
// do not explode label cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := wrap(w)
			next.ServeHTTP(ww, r)

			m.ObserveRequest(r.Method, r.Pattern, ww.statusCode, ww.length, time.Since(start))
		})
	}
}

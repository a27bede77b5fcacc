package httpserver

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck validates a single dependency (database, cache, ...).
type HealthCheck func(ctx context.Context) error

// HealthHandler returns an http.HandlerFunc that runs all checks and reports
// 200 when every dependency responds, 503 otherwise.
func HealthHandler(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

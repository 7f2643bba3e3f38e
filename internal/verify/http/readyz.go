package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
)

// ReadyzHandler is the readiness probe. It checks the critical
// dependencies and returns 503 while any of them are down.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{Database: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, healthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

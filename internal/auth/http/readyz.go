package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authd/pkg/authsdk"
	"github.com/aussiebroadwan/authd/pkg/httpx"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyCheck names a dependency probed by /readyz.
type ReadyCheck struct {
	Name   string
	Pinger Pinger
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and the status of each store
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, checks ...ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make(authsdk.HealthChecks, len(checks))
		overallStatus := "ok"
		statusCode := http.StatusOK

		for _, c := range checks {
			results[c.Name] = "ok"
			if err := c.Pinger.Ping(r.Context()); err != nil {
				results[c.Name] = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  results,
		})
	}
}

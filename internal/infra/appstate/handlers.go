package appstate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type statusResponse struct {
	State      string     `json:"state"`
	Phase      string     `json:"phase,omitempty"`
	Uptime     string     `json:"uptime"`
	StartTime  time.Time  `json:"startTime"`
	StoppingAt *time.Time `json:"stoppingAt,omitempty"`
	UptimeSec  float64    `json:"uptimeSeconds"`
}

// HandleStatus returns an http.HandlerFunc for the /-/status endpoint.
// phase may be nil when no orchestrator is wired.
func HandleStatus(
	logger *slog.Logger,
	appState statusGetter,
	phase phaser,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetReqID(ctx)
		logger := logger.With("traceID", requestID)

		state := appState.GetState()
		uptime := appState.GetUptime()

		response := statusResponse{
			State:      string(state),
			Uptime:     uptime.String(),
			StartTime:  appState.GetStartTime(),
			StoppingAt: appState.GetStoppingTime(),
			UptimeSec:  uptime.Seconds(),
		}

		if phase != nil {
			response.Phase = phase.PhaseName()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.ErrorContext(ctx, "failed to encode status response",
				"error", err,
			)

			return
		}

		logger.DebugContext(ctx, "status response sent",
			"state", string(state),
			"uptime", uptime.String(),
		)
	}
}

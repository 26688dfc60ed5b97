package httpserver

import (
	"encoding/json"
	"net/http"
	"time"
)

type helloResponse struct {
	Message string `json:"message"`
}

type slowResponse struct {
	Message string `json:"message"`
	Delay   string `json:"delay"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, helloResponse{Message: "hello"})
}

// handleSlow answers after ?delay= (default 2s), so draining can be observed.
func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	delay := defaultSlowDelay

	if raw := r.URL.Query().Get("delay"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 || parsed > maxSlowDelay {
			http.Error(w, "invalid delay", http.StatusBadRequest)

			return
		}

		delay = parsed
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "slow request abandoned by client", "delay", delay)

		return
	case <-timer.C:
	}

	s.writeJSON(w, r, http.StatusOK, slowResponse{Message: "done", Delay: delay.String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			"path", r.URL.Path,
			"reason", err,
		)
	}
}

package gate

import (
	"context"
	"encoding/json"
	"net/http"
)

// Probe is evaluated at request time.
// nil = OK, non-nil = FAIL with reason.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function into a Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error { return f(ctx) }

type probeFailure struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ProbeCheck turns a Probe into a custom health check: 200 {"status":"ok"} when the
// probe passes, 503 {"status":"error","error":<reason>} when it fails.
func ProbeCheck(p Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := p.Check(r.Context())
		if err == nil {
			WriteOK(w)

			return
		}

		body, mErr := json.Marshal(probeFailure{Status: "error", Error: err.Error()})
		if mErr != nil {
			body = []byte(`{"status":"error"}`)
		}

		writeJSON(w, http.StatusServiceUnavailable, string(body))
	}
}

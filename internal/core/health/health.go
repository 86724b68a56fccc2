// Package health serves liveness endpoints.
package health

import (
	"encoding/json"
	"net/http"
)

// Liveness answers plain "ok" for orchestrator probes.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

// Alive answers {"status":"alive"} on the index and /health routes.
func Alive() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

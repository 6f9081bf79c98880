package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/georgemunganga/vendora/internal/logging"
)

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthHandler reports whether the vendor store answers a ping.
func healthHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := p.Ping(ctx); err != nil {
			logging.FromRequest(r).Warn().Err(err).Msg("health check")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(healthResponse{Status: "unavailable", Error: "store unreachable"})
			return
		}
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	}
}

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

type HealthResponse struct {
	Status string `json:"status"`
}

// Healthz reports 200 when the relational store answers a ping and 503
// otherwise.
func Healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
	}
}

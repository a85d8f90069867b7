package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goldyy12/files/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	health struct {
		Status string `json:"status"`
	}
)

func (a *App) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	code, body := http.StatusOK, health{Status: "ok"}
	if a.health != nil {
		if err := a.health.Ping(ctx); err != nil {
			log := logutil.FromRequest(r)
			log.Error().Err(err).Msg("Health check failed")
			code, body = http.StatusServiceUnavailable, health{Status: "unavailable"}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

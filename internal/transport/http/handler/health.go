package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness and the runtime mode.
type HealthHandler struct {
	env  string
	nowF func() time.Time
}

func NewHealthHandler(env string) *HealthHandler {
	return &HealthHandler{env: env, nowF: time.Now}
}

func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "OK",
		"environment": h.env,
		"timestamp":   h.nowF().UTC().Format(time.RFC3339Nano),
	})
}

package handler

import (
	"net/http"

	"github.com/JagadeshwaranK/MedPlusMart/internal/transport/http/middleware"
)

// Me returns the claims of the bearer token the Auth middleware accepted.
func Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claims": claims})
}

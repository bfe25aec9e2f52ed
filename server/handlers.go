package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/planter-dashboard/internal/version"
)

// HealthHandler reports liveness. It does not contact the backend.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"app":     s.config.GetAppName(),
			"version": version.Short(),
		})
	}
}

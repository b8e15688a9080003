package mcp

import (
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// HealthResponse represents the JSON response for health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// LivenessHandler always returns 200 OK while the process serves requests
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.logger.DebugContext(ctx, "liveness check requested")

	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
		Version:   serverVersion,
	})
}

// ReadinessHandler returns 200 OK when the bridge executable can be spawned
// and 503 otherwise
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.logger.DebugContext(ctx, "readiness check requested")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
		Version:   serverVersion,
		Checks:    make(map[string]string),
	}

	if reason := s.checkExecutable(); reason != "" {
		response.Status = "unhealthy"
		response.Checks["executable"] = "unavailable"
		response.Details = map[string]string{"executable": reason}
		writeHealth(w, http.StatusServiceUnavailable, response)
		s.logger.ErrorContext(ctx, "readiness check failed",
			"executable", s.executable,
			"reason", reason,
		)
		return
	}

	response.Checks["executable"] = "available"
	writeHealth(w, http.StatusOK, response)
	s.logger.DebugContext(ctx, "readiness check completed", "status", "healthy")
}

func (s *Server) checkExecutable() string {
	if s.executable == "" {
		return "no bridge executable configured"
	}
	info, err := os.Stat(s.executable)
	if err != nil {
		return err.Error()
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return s.executable + " is not executable"
	}
	return ""
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"github.com/busybox42/relaycheck/internal/message"
)

// CheckRequest is the body of POST /api/check
type CheckRequest struct {
	Received []string `json:"received"`
}

// CheckResponse is the result of a reputation check. Known is false when no
// relay hostname could be extracted from the trace; Junk is meaningless in
// that case.
type CheckResponse struct {
	Junk  bool   `json:"junk"`
	Known bool   `json:"known"`
	Host  string `json:"host,omitempty"`
}

// BlocklistInfo describes one registered blocklist
type BlocklistInfo struct {
	Name           string `json:"name"`
	Zone           string `json:"zone"`
	Numeric        bool   `json:"numeric"`
	Enabled        bool   `json:"enabled"`
	DefaultEnabled bool   `json:"default_enabled"`
}

// SetBlocklistRequest is the body of PUT /api/blocklists/{name}
type SetBlocklistRequest struct {
	Enabled bool `json:"enabled"`
}

// HealthResponse reports basic process health
type HealthResponse struct {
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	GoVersion     string    `json:"go_version"`
	NumGoroutines int       `json:"num_goroutines"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := CheckResponse{}
	resp.Host, _ = message.RelayHost(req.Received)
	resp.Junk, resp.Known = s.checker.CheckReceived(r.Context(), req.Received)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBlocklists(w http.ResponseWriter, r *http.Request) {
	var infos []BlocklistInfo
	for _, list := range s.registry.Lists() {
		infos = append(infos, BlocklistInfo{
			Name:           list.Name,
			Zone:           list.Zone,
			Numeric:        list.Numeric,
			Enabled:        s.registry.IsEnabled(r.Context(), list),
			DefaultEnabled: list.DefaultEnabled,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleSetBlocklist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	list := s.registry.Find(name)
	if list == nil {
		writeError(w, http.StatusNotFound, "unknown blocklist")
		return
	}

	var req SetBlocklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.registry.SetEnabled(r.Context(), list, req.Enabled); err != nil {
		s.logger.Error("failed to update blocklist enablement", "list", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store preference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetBlocklists(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.ResetDefaults(r.Context()); err != nil {
		s.logger.Error("failed to reset blocklists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

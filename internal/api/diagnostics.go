package api

import (
	"net/http"
	"runtime"
	"time"
)

type DiagnosticsInfo struct {
	HTTPAddr     string `json:"http_addr"`
	DataDir      string `json:"data_dir"`
	DBPath       string `json:"db_path"`
	SettingsFile string `json:"settings_file,omitempty"`
}

type DiagnosticsResponse struct {
	Time          time.Time       `json:"time"`
	StartedAt     time.Time       `json:"started_at"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	GoVersion     string          `json:"go_version"`
	Info          DiagnosticsInfo `json:"info"`
	Signals       map[string]any  `json:"signals"`
	Pool          map[string]any  `json:"pool"`
	Sessions      map[string]any  `json:"sessions"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}
	resp := DiagnosticsResponse{
		Time:          now,
		StartedAt:     started,
		UptimeSeconds: int64(now.Sub(started).Seconds()),
		GoVersion:     runtime.Version(),
		Info:          s.Info,
		Signals:       map[string]any{},
		Pool:          map[string]any{},
		Sessions:      map[string]any{},
	}
	if s.Bus != nil {
		resp.Signals["subscribers"] = s.Bus.SubscriberCount()
	}
	if s.Pool != nil {
		snap := s.Pool.Snapshot()
		resp.Pool["version"] = snap.Version
		resp.Pool["sources"] = len(s.Pool.Sources())
		resp.Pool["targets"] = len(snap.Targets)
		resp.Pool["actions"] = len(snap.Actions)
		resp.Pool["subscribers"] = s.Pool.SubscriberCount()
		resp.Pool["any_visible"] = s.Pool.AnyVisible()
	}
	if s.Sessions != nil {
		resp.Sessions["live"] = s.Sessions.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

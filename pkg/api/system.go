package api

import (
	"net/http"
	"runtime"
	"time"
)

// Version is the build version reported by /system/info. Set with
// -ldflags "-X github.com/ssargent/catbuf/pkg/api.Version=...".
var Version = "dev"

// SystemInfo reports the running server's build and state
type SystemInfo struct {
	Version       string  `json:"version"`
	GoVersion     string  `json:"go_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Schemas       int     `json:"schemas"`
	Records       *int    `json:"records,omitempty"`
	AuthEnabled   bool    `json:"auth_enabled"`
	MaxRecordSize int     `json:"max_record_size,omitempty"`
}

// SystemInfo gathers the current system information
func (s *Server) SystemInfo() (SystemInfo, error) {
	info := SystemInfo{
		Version:       Version,
		GoVersion:     runtime.Version(),
		UptimeSeconds: time.Since(s.started).Seconds(),
		Schemas:       len(s.schemas.Names()),
		AuthEnabled:   s.config.APIKey != "",
		MaxRecordSize: s.config.MaxRecordSize,
	}
	if s.store != nil {
		entries, err := s.store.List(0)
		if err != nil {
			return info, err
		}
		n := len(entries)
		info.Records = &n
	}
	return info, nil
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.SystemInfo()
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, info)
}

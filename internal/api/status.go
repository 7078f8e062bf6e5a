package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	WebSocket     WSStatus        `json:"websocket"`
	Devices       DeviceStatus    `json:"devices"`
	Database      *DatabaseStatus `json:"database,omitempty"`
	MQTT          *LinkStatus     `json:"mqtt,omitempty"`
	InfluxDB      *LinkStatus     `json:"influxdb,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	ConnectedClients int `json:"connected_clients"`
}

// DeviceStatus counts stored devices. Total includes devices of unknown type
// (by_type "Unknown") and those with conflicting subtype rows.
type DeviceStatus struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"by_type"`
	Inconsistent int            `json:"inconsistent"`
}

// DatabaseStatus contains connection pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// LinkStatus reports an optional outbound integration.
type LinkStatus struct {
	Connected bool `json:"connected"`
}

// Connection reports whether an integration is currently connected.
// *mqtt.Client and *influxdb.Client satisfy it.
type Connection interface {
	IsConnected() bool
}

// poolStats is implemented by *database.DB through its embedded *sql.DB.
type poolStats interface {
	Stats() sql.DBStats
}

// handleStatus reports runtime, hub, device and integration state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.devices.Count(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSStatus{ConnectedClients: s.hub.ClientCount()},
		Devices: DeviceStatus{
			Total:        counts.Total,
			ByType:       make(map[string]int, len(counts.ByKind)),
			Inconsistent: counts.Inconsistent,
		},
	}
	for kind, n := range counts.ByKind {
		status.Devices.ByType[string(kind)] = n
	}

	if ps, ok := s.db.(poolStats); ok {
		st := ps.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}
	if s.mqtt != nil {
		status.MQTT = &LinkStatus{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		status.InfluxDB = &LinkStatus{Connected: s.influx.IsConnected()}
	}

	writeJSON(w, http.StatusOK, status)
}

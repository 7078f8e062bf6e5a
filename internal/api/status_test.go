package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type fakeLink bool

func (f fakeLink) IsConnected() bool { return bool(f) }

func TestStatus(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.MQTT = fakeLink(true)
	})
	env.create(t, map[string]any{"name": "Desk", "device_type": "PersonalComputer", "operation_system": "Linux"})
	env.create(t, map[string]any{"name": "Watch", "device_type": "Smartwatch", "battery_percentage": 12})
	env.create(t, map[string]any{"name": "Watch 2", "device_type": "Smartwatch", "battery_percentage": 99})

	resp := env.do(t, http.MethodGet, "/api/v1/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[StatusResponse](t, resp)

	if got.Version != "test" {
		t.Errorf("Version = %q, want test", got.Version)
	}
	if got.Devices.Total != 3 || got.Devices.ByType["Smartwatch"] != 2 || got.Devices.ByType["PersonalComputer"] != 1 {
		t.Errorf("Devices = %+v", got.Devices)
	}
	if got.Database == nil || got.Database.OpenConnections < 1 {
		t.Errorf("Database = %+v, want pool stats", got.Database)
	}
	if got.MQTT == nil || !got.MQTT.Connected {
		t.Errorf("MQTT = %+v, want connected", got.MQTT)
	}
	if got.InfluxDB != nil {
		t.Errorf("InfluxDB = %+v, want omitted", got.InfluxDB)
	}
	if got.Runtime.Goroutines == 0 {
		t.Error("Runtime.Goroutines = 0")
	}
}

func TestStatus_CountsEveryStoredDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hybrid := env.create(t, map[string]any{"name": "Hybrid", "device_type": "PersonalComputer", "operation_system": "Linux"})
	if _, err := env.db.ExecContext(ctx,
		"INSERT INTO smartwatches (device_id, battery_percentage) VALUES (?, ?)", hybrid.ID, 30,
	); err != nil {
		t.Fatalf("insert second subtype row: %v", err)
	}
	now := time.Now().UTC()
	if _, err := env.db.ExecContext(ctx,
		"INSERT INTO devices (id, name, is_enabled, version_token, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"orphan", "Orphan", true, []byte{1}, now, now,
	); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}

	got := decode[StatusResponse](t, env.do(t, http.MethodGet, "/api/v1/status", nil, nil))
	if got.Devices.Total != 2 {
		t.Errorf("Total = %d, want 2", got.Devices.Total)
	}
	if got.Devices.Inconsistent != 1 || got.Devices.ByType["Unknown"] != 1 {
		t.Errorf("Devices = %+v, want one inconsistent and one Unknown", got.Devices)
	}

	raw, _ := io.ReadAll(env.do(t, http.MethodGet, "/metrics", nil, nil).Body)
	if strings.Contains(string(raw), `operation="list_detailed"`) {
		t.Errorf("status poll recorded a list_detailed operation:\n%s", raw)
	}
	if !strings.Contains(string(raw), `devicehub_device_operations_total{operation="count",outcome="ok"} 1`) {
		t.Errorf("metrics output missing count/ok counter:\n%s", raw)
	}
}

package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/devicehub/internal/infrastructure/config"
)

// fakeInflux serves /ping and captures line protocol sent to /api/v2/write.
type fakeInflux struct {
	server   *httptest.Server
	writes   chan string
	writeErr bool
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{writes: make(chan string, 16)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			if f.writeErr {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"bad point"}`))
				return
			}
			f.writes <- string(body)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "devicehub",
		Bucket:        "devices",
		BatchSize:     10,
		FlushInterval: 60,
	}
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(context.Background(), testConfig("http://127.0.0.1:1"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectAndHealthCheck(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteDeviceEvent(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteDeviceEvent(DeviceEventPoint{
		EventType:  "device.created",
		DeviceID:   "dev-1",
		DeviceType: "Smartwatch",
		Name:       "Watch",
		IsEnabled:  true,
		Timestamp:  time.Unix(1700000000, 0),
	})
	client.Flush()

	select {
	case line := <-fake.writes:
		for _, want := range []string{
			"device_events,device_type=Smartwatch,event=device.created",
			`device_id="dev-1"`,
			"is_enabled=true",
			`name="Watch"`,
			"1700000000000000000",
		} {
			if !strings.Contains(line, want) {
				t.Errorf("line protocol %q missing %q", line, want)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no write received")
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	fake := newFakeInflux(t)
	fake.writeErr = true

	client, err := Connect(context.Background(), testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	got := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case got <- err:
		default:
		}
	})

	client.WriteDeviceEvent(DeviceEventPoint{EventType: "device.deleted", DeviceID: "dev-2"})
	client.Flush()

	select {
	case err := <-got:
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not reported")
	}
}

func TestClosedClient(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}

	// No-ops after close.
	client.WriteDeviceEvent(DeviceEventPoint{EventType: "device.updated", DeviceID: "dev-3"})
	client.Flush()

	select {
	case line := <-fake.writes:
		t.Errorf("unexpected write after Close: %q", line)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

package device

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func setupTestCoordinator(t *testing.T) (*Coordinator, *recordingNotifier) {
	t.Helper()

	store, _ := setupTestStore(t)
	c := NewCoordinator(store)
	n := &recordingNotifier{}
	c.SetNotifier(n)
	return c, n
}

func TestCoordinator_Create(t *testing.T) {
	c, _ := setupTestCoordinator(t)
	ctx := context.Background()

	t.Run("personal computer projection", func(t *testing.T) {
		d, err := c.Create(ctx, CreateRequest{
			Name:              "  Build Server ",
			DeviceType:        "personalcomputer",
			OperationSystem:   strPtr("Debian"),
			BatteryPercentage: intPtr(99), // ignored for this type
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if d.DeviceType != KindPersonalComputer {
			t.Errorf("DeviceType = %q, want %q", d.DeviceType, KindPersonalComputer)
		}
		if d.Name != "Build Server" {
			t.Errorf("Name = %q, want trimmed %q", d.Name, "Build Server")
		}
		if !d.IsEnabled {
			t.Error("IsEnabled = false, want default true")
		}
		if d.OperationSystem == nil || *d.OperationSystem != "Debian" {
			t.Errorf("OperationSystem = %v, want Debian", d.OperationSystem)
		}
		if d.BatteryPercentage != nil || d.NetworkName != nil || d.IPAddress != nil {
			t.Error("fields of other device types populated")
		}
		if len(d.VersionToken) == 0 {
			t.Error("VersionToken is empty")
		}
	})

	t.Run("embedded with explicit disable", func(t *testing.T) {
		d, err := c.Create(ctx, CreateRequest{
			Name:        "Sensor Hub",
			IsEnabled:   boolPtr(false),
			DeviceType:  "EMBEDDED",
			IPAddress:   strPtr("fe80::1"),
			NetworkName: strPtr("iot"),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if d.IsEnabled {
			t.Error("IsEnabled = true, want false")
		}
		if d.IPAddress == nil || *d.IPAddress != "fe80::1" {
			t.Errorf("IPAddress = %v, want fe80::1", d.IPAddress)
		}
	})
}

func TestCoordinator_CreateRejections(t *testing.T) {
	c, n := setupTestCoordinator(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       CreateRequest
		wantErr   error
		wantField string
	}{
		{
			name:    "unknown type",
			req:     CreateRequest{Name: "Toaster", DeviceType: "Toaster"},
			wantErr: ErrInvalidDeviceType,
		},
		{
			name:    "missing type",
			req:     CreateRequest{Name: "Nameless"},
			wantErr: ErrInvalidDeviceType,
		},
		{
			name:      "battery above range",
			req:       CreateRequest{Name: "Watch", DeviceType: "Smartwatch", BatteryPercentage: intPtr(150)},
			wantErr:   ErrValidation,
			wantField: "battery_percentage",
		},
		{
			name:      "battery missing",
			req:       CreateRequest{Name: "Watch", DeviceType: "Smartwatch"},
			wantErr:   ErrValidation,
			wantField: "battery_percentage",
		},
		{
			name:      "bad ip",
			req:       CreateRequest{Name: "Board", DeviceType: "Embedded", IPAddress: strPtr("999.1.1.1"), NetworkName: strPtr("lab")},
			wantErr:   ErrValidation,
			wantField: "ip_address",
		},
		{
			name:      "network name missing",
			req:       CreateRequest{Name: "Board", DeviceType: "Embedded"},
			wantErr:   ErrValidation,
			wantField: "network_name",
		},
		{
			name:      "operation system blank",
			req:       CreateRequest{Name: "Desk", DeviceType: "PersonalComputer", OperationSystem: strPtr("  ")},
			wantErr:   ErrValidation,
			wantField: "operation_system",
		},
		{
			name:      "empty name",
			req:       CreateRequest{Name: " ", DeviceType: "PersonalComputer", OperationSystem: strPtr("Linux")},
			wantErr:   ErrValidation,
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantField == "" {
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not *ValidationError", err)
			}
			if ve.Fields[0].Field != tt.wantField {
				t.Errorf("Fields[0].Field = %q, want %q", ve.Fields[0].Field, tt.wantField)
			}
		})
	}

	list, err := c.ListShort(ctx)
	if err != nil {
		t.Fatalf("ListShort() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected creates stored %d devices", len(list))
	}
	if len(n.types()) != 0 {
		t.Errorf("rejected creates emitted events: %v", n.types())
	}
}

// TestCoordinator_RoundTrip covers create, read, update, read.
func TestCoordinator_RoundTrip(t *testing.T) {
	c, n := setupTestCoordinator(t)
	ctx := context.Background()

	created, err := c.Create(ctx, CreateRequest{Name: "Runner", DeviceType: "Smartwatch", BatteryPercentage: intPtr(70)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	read, err := c.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	token, err := c.Update(ctx, created.ID, UpdateRequest{
		Name:              "Runner Pro",
		IsEnabled:         false,
		VersionToken:      read.VersionToken,
		BatteryPercentage: intPtr(12),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if bytes.Equal(token, read.VersionToken) {
		t.Error("Update() returned the old token")
	}

	after, err := c.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if after.Name != "Runner Pro" || after.IsEnabled || *after.BatteryPercentage != 12 {
		t.Errorf("after update = %+v", after)
	}
	if !bytes.Equal(after.VersionToken, token) {
		t.Errorf("VersionToken = %x, want %x", after.VersionToken, token)
	}

	want := []EventType{EventCreated, EventUpdated}
	got := n.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCoordinator_Update(t *testing.T) {
	c, _ := setupTestCoordinator(t)
	ctx := context.Background()

	created, err := c.Create(ctx, CreateRequest{Name: "Laptop", DeviceType: "PersonalComputer", OperationSystem: strPtr("Linux")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("not found", func(t *testing.T) {
		_, err := c.Update(ctx, "missing", UpdateRequest{Name: "x", VersionToken: []byte{1}})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid request for missing id", func(t *testing.T) {
		tests := []struct {
			name  string
			req   UpdateRequest
			field string
		}{
			{"blank name", UpdateRequest{Name: "  ", VersionToken: []byte{1}}, "name"},
			{"no token", UpdateRequest{Name: "x"}, "version_token"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := c.Update(ctx, "missing", tt.req)
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Update() error = %v, want ValidationError", err)
				}
				if errors.Is(err, ErrNotFound) {
					t.Errorf("Update() error = %v, must not be ErrNotFound", err)
				}
				if ve.Fields[0].Field != tt.field {
					t.Errorf("first field = %q, want %q", ve.Fields[0].Field, tt.field)
				}
			})
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := c.Update(ctx, created.ID, UpdateRequest{Name: "Laptop", OperationSystem: strPtr("Linux")})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Update() error = %v, want ErrValidation", err)
		}
	})

	t.Run("type cannot change", func(t *testing.T) {
		_, err := c.Update(ctx, created.ID, UpdateRequest{
			Name:              "Laptop",
			VersionToken:      created.VersionToken,
			BatteryPercentage: intPtr(50),
		})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Fields[0].Field != "operation_system" {
			t.Errorf("Update() error = %v, want operation_system required", err)
		}
	})

	t.Run("stale token", func(t *testing.T) {
		if _, err := c.Update(ctx, created.ID, UpdateRequest{
			Name: "Laptop v2", VersionToken: created.VersionToken, OperationSystem: strPtr("Linux"),
		}); err != nil {
			t.Fatalf("first Update() error = %v", err)
		}

		_, err := c.Update(ctx, created.ID, UpdateRequest{
			Name: "Laptop v3", VersionToken: created.VersionToken, OperationSystem: strPtr("Windows"),
		})
		if !errors.Is(err, ErrConcurrencyConflict) {
			t.Fatalf("stale Update() error = %v, want ErrConcurrencyConflict", err)
		}

		d, err := c.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if d.Name != "Laptop v2" || *d.OperationSystem != "Linux" {
			t.Errorf("stale update changed fields: %+v", d)
		}
	})
}

func TestCoordinator_UnknownType(t *testing.T) {
	store, db := setupTestStore(t)
	c := NewCoordinator(store)
	ctx := context.Background()

	insertOrphan(t, db, "orphan-1", "Mystery")

	if _, err := c.GetByID(ctx, "orphan-1"); !errors.Is(err, ErrDeviceTypeUnknown) {
		t.Errorf("GetByID() error = %v, want ErrDeviceTypeUnknown", err)
	}
	if _, err := c.Update(ctx, "orphan-1", UpdateRequest{Name: "x", VersionToken: []byte{1, 2, 3}}); !errors.Is(err, ErrDeviceTypeUnknown) {
		t.Errorf("Update() error = %v, want ErrDeviceTypeUnknown", err)
	}

	list, err := c.ListDetailed(ctx)
	if err != nil {
		t.Fatalf("ListDetailed() error = %v", err)
	}
	if len(list) != 1 || list[0].DeviceType != KindUnknown {
		t.Errorf("ListDetailed() = %+v, want one Unknown device", list)
	}
}

func TestCoordinator_Listings(t *testing.T) {
	c, _ := setupTestCoordinator(t)
	ctx := context.Background()

	reqs := []CreateRequest{
		{Name: "Zulu", DeviceType: "Smartwatch", BatteryPercentage: intPtr(5)},
		{Name: "Alpha", DeviceType: "Embedded", NetworkName: strPtr("n1")},
		{Name: "Mike", DeviceType: "PersonalComputer", OperationSystem: strPtr("Plan 9"), IsEnabled: boolPtr(false)},
	}
	for _, r := range reqs {
		if _, err := c.Create(ctx, r); err != nil {
			t.Fatalf("Create(%q) error = %v", r.Name, err)
		}
	}

	short, err := c.ListShort(ctx)
	if err != nil {
		t.Fatalf("ListShort() error = %v", err)
	}
	wantNames := []string{"Alpha", "Mike", "Zulu"}
	for i, s := range short {
		if s.Name != wantNames[i] {
			t.Errorf("ListShort()[%d].Name = %q, want %q", i, s.Name, wantNames[i])
		}
	}
	if short[1].IsEnabled {
		t.Error("Mike should be disabled in summary")
	}

	detailed, err := c.ListDetailed(ctx)
	if err != nil {
		t.Fatalf("ListDetailed() error = %v", err)
	}
	wantKinds := []Kind{KindEmbedded, KindPersonalComputer, KindSmartwatch}
	if len(detailed) != len(wantKinds) {
		t.Fatalf("ListDetailed() returned %d, want %d", len(detailed), len(wantKinds))
	}
	for i, d := range detailed {
		if d.DeviceType != wantKinds[i] {
			t.Errorf("ListDetailed()[%d].DeviceType = %q, want %q", i, d.DeviceType, wantKinds[i])
		}
	}
}

func TestCoordinator_Delete(t *testing.T) {
	c, n := setupTestCoordinator(t)
	ctx := context.Background()

	deleted, err := c.Delete(ctx, "never-existed")
	if err != nil || deleted {
		t.Errorf("Delete(unknown) = %v, %v; want false, nil", deleted, err)
	}

	d, err := c.Create(ctx, CreateRequest{Name: "Old", DeviceType: "Smartwatch", BatteryPercentage: intPtr(0)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err = c.Delete(ctx, d.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v; want true, nil", deleted, err)
	}
	if _, err := c.GetByID(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	got := n.types()
	if len(got) != 2 || got[1] != EventDeleted {
		t.Errorf("events = %v, want [created deleted]", got)
	}
}

func TestCoordinator_NotifierFailureDoesNotFailOperation(t *testing.T) {
	store, _ := setupTestStore(t)
	c := NewCoordinator(store)
	c.SetNotifier(&recordingNotifier{err: errors.New("broker down")})

	if _, err := c.Create(context.Background(), CreateRequest{
		Name: "Resilient", DeviceType: "Smartwatch", BatteryPercentage: intPtr(100),
	}); err != nil {
		t.Errorf("Create() error = %v, want nil despite notifier failure", err)
	}
}

func TestCoordinator_ObserverOutcomes(t *testing.T) {
	store, _ := setupTestStore(t)
	c := NewCoordinator(store)
	obs := &recordingObserver{}
	c.SetObserver(obs)
	ctx := context.Background()

	_, _ = c.Create(ctx, CreateRequest{Name: "x", DeviceType: "Gadget"})
	_, _ = c.Create(ctx, CreateRequest{Name: "ok", DeviceType: "Smartwatch", BatteryPercentage: intPtr(1)})
	_, _ = c.GetByID(ctx, "missing")

	if got := obs.outcomes[OpCreate]; len(got) != 2 || got[0] != "invalid_type" || got[1] != "ok" {
		t.Errorf("create outcomes = %v, want [invalid_type ok]", got)
	}
	if got := obs.outcomes[OpGet]; len(got) != 1 || got[0] != "not_found" {
		t.Errorf("get outcomes = %v, want [not_found]", got)
	}
}

func TestCoordinator_Count(t *testing.T) {
	store, db := setupTestStore(t)
	c := NewCoordinator(store)
	obs := &recordingObserver{}
	c.SetObserver(obs)
	ctx := context.Background()

	if _, err := c.Create(ctx, CreateRequest{Name: "Watch", DeviceType: "Smartwatch", BatteryPercentage: intPtr(5)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	hybrid, err := c.Create(ctx, CreateRequest{Name: "Hybrid", DeviceType: "PersonalComputer", OperationSystem: strPtr("Linux")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO embedded_devices (device_id, ip_address, network_name) VALUES (?, ?, ?)", hybrid.ID, "10.0.0.1", "lab",
	); err != nil {
		t.Fatalf("inserting second subtype row: %v", err)
	}

	counts, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if counts.Total != 2 || counts.Inconsistent != 1 || counts.ByKind[KindSmartwatch] != 1 {
		t.Errorf("Count() = %+v, want the inconsistent device in Total", counts)
	}

	if got := obs.outcomes[OpCount]; len(got) != 1 || got[0] != "ok" {
		t.Errorf("count outcomes = %v, want [ok]", got)
	}
	if got := obs.outcomes[OpListDetailed]; len(got) != 0 {
		t.Errorf("list_detailed outcomes = %v, want none", got)
	}
}

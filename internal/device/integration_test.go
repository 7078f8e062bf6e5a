package device_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/infrastructure/database"
	_ "github.com/nerrad567/devicehub/migrations"
)

// openIntegrationDB opens and migrates the SQLite file at path.
func openIntegrationDB(t *testing.T, path string) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func intPtr(n int) *int { return &n }

// TestIntegration_SurvivesRestart wires the coordinator the way main does,
// closes the database and checks everything reads back after reopening.
func TestIntegration_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restart.db")

	db := openIntegrationDB(t, path)
	coord := device.NewCoordinator(device.NewSQLStore(db.DB, db.Dialect()))

	network := "plant"
	created, err := coord.Create(ctx, device.CreateRequest{
		Name:        "Gateway",
		DeviceType:  "embedded",
		NetworkName: &network,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	token, err := coord.Update(ctx, created.ID, device.UpdateRequest{
		Name:         "Gateway",
		IsEnabled:    false,
		VersionToken: created.VersionToken,
		NetworkName:  &network,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db = openIntegrationDB(t, path)
	t.Cleanup(func() { db.Close() })
	coord = device.NewCoordinator(device.NewSQLStore(db.DB, db.Dialect()))

	got, err := coord.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() after restart error = %v", err)
	}
	if got.DeviceType != device.KindEmbedded || got.IsEnabled || *got.NetworkName != "plant" {
		t.Errorf("after restart = %+v", got)
	}
	if string(got.VersionToken) != string(token) {
		t.Error("version token changed across restart")
	}
}

// TestIntegration_RetryLoopLosesNoUpdates runs many writers that each
// re-read and retry on conflict. Every increment must land exactly once.
func TestIntegration_RetryLoopLosesNoUpdates(t *testing.T) {
	ctx := context.Background()
	db := openIntegrationDB(t, filepath.Join(t.TempDir(), "retry.db"))
	t.Cleanup(func() { db.Close() })
	coord := device.NewCoordinator(device.NewSQLStore(db.DB, db.Dialect()))

	created, err := coord.Create(ctx, device.CreateRequest{
		Name:              "Watch",
		DeviceType:        "Smartwatch",
		BatteryPercentage: intPtr(0),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const writers, perWriter = 5, 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
	)
	errCh := make(chan error, writers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				for {
					cur, err := coord.GetByID(ctx, created.ID)
					if err != nil {
						errCh <- err
						return
					}
					_, err = coord.Update(ctx, created.ID, device.UpdateRequest{
						Name:              cur.Name,
						IsEnabled:         cur.IsEnabled,
						VersionToken:      cur.VersionToken,
						BatteryPercentage: intPtr(*cur.BatteryPercentage + 1),
					})
					if errors.Is(err, device.ErrConcurrencyConflict) {
						mu.Lock()
						conflicts++
						mu.Unlock()
						continue
					}
					if err != nil {
						errCh <- err
						return
					}
					break
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("writer error = %v", err)
	}

	got, err := coord.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if *got.BatteryPercentage != writers*perWriter {
		t.Errorf("BatteryPercentage = %d, want %d (conflicts retried: %d)",
			*got.BatteryPercentage, writers*perWriter, conflicts)
	}
}

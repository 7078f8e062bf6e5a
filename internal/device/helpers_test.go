package device

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/devicehub/internal/infrastructure/database"
	_ "github.com/nerrad567/devicehub/migrations" // registers embedded schema
)

// openTestDB opens a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "devices.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// setupTestStore returns a store over a fresh database.
func setupTestStore(t *testing.T) (*SQLStore, *database.DB) {
	t.Helper()

	db := openTestDB(t)
	return NewSQLStore(db.DB, db.Dialect()), db
}

// insertOrphan writes a base row with no subtype row.
func insertOrphan(t *testing.T, db *database.DB, id, name string) {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO devices (id, name, is_enabled, version_token, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, name, true, []byte{1, 2, 3}, now, now,
	)
	if err != nil {
		t.Fatalf("inserting orphan device: %v", err)
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// recordingObserver captures operation outcomes.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[Operation][]string
}

func (r *recordingObserver) ObserveOperation(op Operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[Operation][]string)
	}
	r.outcomes[op] = append(r.outcomes[op], outcome)
}

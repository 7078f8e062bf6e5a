package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/devicehub/internal/api"
	"github.com/nerrad567/devicehub/internal/auth"
	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/infrastructure/config"
	"github.com/nerrad567/devicehub/internal/infrastructure/database"
	"github.com/nerrad567/devicehub/internal/infrastructure/logging"
	_ "github.com/nerrad567/devicehub/migrations"
)

const testSecret = "devicectl-test-secret-at-least-32-chars"

func newServer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "ctl.db"), BusyTimeout: 5})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(ctx))

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	srv, err := api.New(api.Deps{
		Logger:  log,
		Devices: device.NewCoordinator(device.NewSQLStore(db.DB, db.Dialect())),
		DB:      db,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs devicectl with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeviceCommands(t *testing.T) {
	url := newServer(t)

	out, err := execute(t, "-s", url, "create", "--type", "Embedded", "--name", "Gateway", "--network", "plant", "--ip", "10.0.0.5")
	require.NoError(t, err)
	var created device.Details
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, device.KindEmbedded, created.DeviceType)
	assert.Equal(t, "10.0.0.5", *created.IPAddress)

	out, err = execute(t, "-s", url, "update", created.ID, "--name", "Gateway 2", "--enabled=false")
	require.NoError(t, err)
	assert.Contains(t, out, "version_token")

	out, err = execute(t, "-s", url, "get", created.ID)
	require.NoError(t, err)
	var got device.Details
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Gateway 2", got.Name)
	assert.False(t, got.IsEnabled)
	assert.Equal(t, "plant", *got.NetworkName, "unchanged fields are kept")

	_, err = execute(t, "-s", url, "update", created.ID, "--name", "Stale",
		"--version", "AAAAAAAAAAAAAAAAAAAAAA==")
	assert.ErrorIs(t, err, device.ErrConcurrencyConflict)

	out, err = execute(t, "-v", "-s", url, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Gateway 2")

	out, err = execute(t, "-s", url, "list", "--details")
	require.NoError(t, err)
	assert.Contains(t, out, `"network_name": "plant"`)

	path := filepath.Join(t.TempDir(), "devices.xlsx")
	out, err = execute(t, "-s", url, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	out, err = execute(t, "-s", url, "delete", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+created.ID+"\n", out)

	_, err = execute(t, "-s", url, "get", created.ID)
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestCreateCommand_RequiresType(t *testing.T) {
	_, err := execute(t, "create", "--name", "x")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--role", "admin", "--subject", "ops", "--secret", testSecret)
	require.NoError(t, err)

	claims, err := auth.ParseToken(strings.TrimSpace(out), testSecret)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "ops", claims.Subject)

	_, err = execute(t, "token", "--role", "root", "--secret", testSecret)
	assert.Error(t, err)

	t.Setenv("DEVICEHUB_JWT_SECRET", "")
	_, err = execute(t, "token", "--secret", "")
	assert.Error(t, err)
}

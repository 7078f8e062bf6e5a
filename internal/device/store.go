package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store defines the transactional persistence operations for devices.
// This abstraction lets the Coordinator be tested without a database.
type Store interface {
	// CreateDevice inserts the base row and exactly one subtype row in one
	// transaction. An empty d.ID is replaced with a generated UUID.
	// Returns ErrDeviceExists for a duplicate id and ErrCreationFailed when
	// the subtype insert fails or affects no rows.
	CreateDevice(ctx context.Context, d Device, a Attributes) (*Record, error)

	// FetchByID reads the base row joined with its subtype row.
	// Returns ErrNotFound if no base row exists. A device without a subtype
	// row is returned with KindUnknown; more than one yields ErrDataIntegrity.
	FetchByID(ctx context.Context, id string) (*Record, error)

	// FetchAll lists base rows ordered by name.
	FetchAll(ctx context.Context) ([]Device, error)

	// UpdateDevice replaces name, enabled flag and attributes only if the
	// stored version token equals expectedToken, returning the new token.
	// Returns ErrConcurrencyConflict on a token mismatch or missing row.
	UpdateDevice(ctx context.Context, id string, d Device, expectedToken []byte, a Attributes) ([]byte, error)

	// DeleteDevice removes the device and its subtype row, reporting whether
	// the device existed.
	DeleteDevice(ctx context.Context, id string) (bool, error)

	// Exists reports whether a base row exists for id.
	Exists(ctx context.Context, id string) (bool, error)

	// CountDevices tallies base rows by subtype in a single query.
	CountDevices(ctx context.Context) (*Counts, error)
}

// Counts summarises stored devices. Total includes devices without a
// subtype row (ByKind[KindUnknown]) and those with more than one
// (Inconsistent).
type Counts struct {
	Total        int
	ByKind       map[Kind]int
	Inconsistent int
}

// Dialect adapts queries written with ? placeholders to the active driver.
// database.Dialect implements it.
type Dialect interface {
	Rebind(query string) string
	IsUniqueViolation(err error) bool
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// subtypeTables maps each kind to the table holding its variant fields.
var subtypeTables = map[Kind]string{
	KindPersonalComputer: "personal_computers",
	KindEmbedded:         "embedded_devices",
	KindSmartwatch:       "smartwatches",
}

const selectRecordSQL = `
	SELECT d.id, d.name, d.is_enabled, d.version_token, d.created_at, d.updated_at,
		pc.id, pc.operation_system,
		e.id, e.ip_address, e.network_name,
		sw.id, sw.battery_percentage
	FROM devices d
	LEFT JOIN personal_computers pc ON pc.device_id = d.id
	LEFT JOIN embedded_devices e ON e.device_id = d.id
	LEFT JOIN smartwatches sw ON sw.device_id = d.id
	WHERE d.id = ?`

// SQLStore implements Store over database/sql. Every operation runs in its
// own transaction, and reads made while a transaction is open go through it.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore creates a store over an open connection with migrated schema.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateDevice inserts a device and its subtype row atomically.
func (s *SQLStore) CreateDevice(ctx context.Context, d Device, a Attributes) (*Record, error) {
	if d.ID == "" {
		d.ID = GenerateID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning create transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := s.now()
	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO devices (id, name, is_enabled, version_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		d.ID, d.Name, d.IsEnabled, newVersionToken(), now, now,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceExists, d.ID)
		}
		return nil, storageErr("inserting device", err)
	}

	res, err := s.insertAttributes(ctx, tx, d.ID, a)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting subtype row: %w", ErrCreationFailed, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, fmt.Errorf("%w: subtype insert affected no rows", ErrCreationFailed)
	}

	rec, err := s.fetch(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing create", err)
	}
	return rec, nil
}

func (s *SQLStore) insertAttributes(ctx context.Context, tx *sql.Tx, deviceID string, a Attributes) (sql.Result, error) {
	switch a := a.(type) {
	case PersonalComputer:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"INSERT INTO personal_computers (device_id, operation_system) VALUES (?, ?)"),
			deviceID, a.OperationSystem,
		)
	case Embedded:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"INSERT INTO embedded_devices (device_id, ip_address, network_name) VALUES (?, ?, ?)"),
			deviceID, a.IPAddress, a.NetworkName,
		)
	case Smartwatch:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"INSERT INTO smartwatches (device_id, battery_percentage) VALUES (?, ?)"),
			deviceID, a.BatteryPercentage,
		)
	default:
		return nil, fmt.Errorf("unsupported attributes %T", a)
	}
}

// FetchByID reads a device with its subtype row in one statement.
func (s *SQLStore) FetchByID(ctx context.Context, id string) (*Record, error) {
	return s.fetch(ctx, s.db, id)
}

func (s *SQLStore) fetch(ctx context.Context, q rowQuerier, id string) (*Record, error) {
	var (
		rec                   Record
		pcID, embID, swID     sql.NullInt64
		opSystem, ip, netName sql.NullString
		battery               sql.NullInt64
	)

	err := q.QueryRowContext(ctx, s.dialect.Rebind(selectRecordSQL), id).Scan(
		&rec.ID, &rec.Name, &rec.IsEnabled, &rec.VersionToken, &rec.CreatedAt, &rec.UpdatedAt,
		&pcID, &opSystem,
		&embID, &ip, &netName,
		&swID, &battery,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr("querying device by id", err)
	}

	var matches []Attributes
	if pcID.Valid {
		matches = append(matches, PersonalComputer{OperationSystem: opSystem.String})
	}
	if embID.Valid {
		e := Embedded{NetworkName: netName.String}
		if ip.Valid {
			e.IPAddress = &ip.String
		}
		matches = append(matches, e)
	}
	if swID.Valid {
		matches = append(matches, Smartwatch{BatteryPercentage: int(battery.Int64)})
	}

	switch len(matches) {
	case 0:
		rec.Kind = KindUnknown
	case 1:
		rec.Attributes = matches[0]
		rec.Kind = matches[0].Kind()
	default:
		return nil, fmt.Errorf("%w: device %s has %d subtype rows", ErrDataIntegrity, id, len(matches))
	}
	return &rec, nil
}

// FetchAll lists every device ordered by name, then insertion order.
func (s *SQLStore) FetchAll(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_enabled, version_token, created_at, updated_at
		FROM devices
		ORDER BY name, seq`)
	if err != nil {
		return nil, storageErr("querying devices", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.IsEnabled, &d.VersionToken, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, storageErr("scanning device row", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating devices", err)
	}
	return devices, nil
}

// UpdateDevice performs the conditional update. The version token swap and
// its read-back are a single statement, so no other writer can interleave.
func (s *SQLStore) UpdateDevice(ctx context.Context, id string, d Device, expectedToken []byte, a Attributes) ([]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning update transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var token []byte
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`
		UPDATE devices
		SET name = ?, is_enabled = ?, version_token = ?, updated_at = ?
		WHERE id = ? AND version_token = ?
		RETURNING version_token`),
		d.Name, d.IsEnabled, newVersionToken(), s.now(), id, expectedToken,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: device %s", ErrConcurrencyConflict, id)
		}
		return nil, storageErr("updating device", err)
	}

	res, err := s.updateAttributes(ctx, tx, id, a)
	if err != nil {
		return nil, storageErr("updating subtype row", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, fmt.Errorf("%w: no %s row for device %s", ErrDataIntegrity, subtypeTables[a.Kind()], id)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing update", err)
	}
	return token, nil
}

func (s *SQLStore) updateAttributes(ctx context.Context, tx *sql.Tx, deviceID string, a Attributes) (sql.Result, error) {
	switch a := a.(type) {
	case PersonalComputer:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"UPDATE personal_computers SET operation_system = ? WHERE device_id = ?"),
			a.OperationSystem, deviceID,
		)
	case Embedded:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"UPDATE embedded_devices SET ip_address = ?, network_name = ? WHERE device_id = ?"),
			a.IPAddress, a.NetworkName, deviceID,
		)
	case Smartwatch:
		return tx.ExecContext(ctx, s.dialect.Rebind(
			"UPDATE smartwatches SET battery_percentage = ? WHERE device_id = ?"),
			a.BatteryPercentage, deviceID,
		)
	default:
		return nil, fmt.Errorf("unsupported attributes %T", a)
	}
}

// DeleteDevice removes subtype rows then the base row in one transaction.
// The delete is unconditional on the version token.
func (s *SQLStore) DeleteDevice(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("beginning delete transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, kind := range AllKinds() {
		query := "DELETE FROM " + subtypeTables[kind] + " WHERE device_id = ?"
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(query), id); err != nil {
			return false, storageErr("deleting "+subtypeTables[kind]+" row", err)
		}
	}

	res, err := tx.ExecContext(ctx, s.dialect.Rebind("DELETE FROM devices WHERE id = ?"), id)
	if err != nil {
		return false, storageErr("deleting device", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("checking rows affected", err)
	}

	if err := tx.Commit(); err != nil {
		return false, storageErr("committing delete", err)
	}
	return n > 0, nil
}

// Exists reports whether a device with the given id exists.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT COUNT(*) FROM devices WHERE id = ?"), id).Scan(&count)
	if err != nil {
		return false, storageErr("checking device existence", err)
	}
	return count > 0, nil
}

// inconsistentLabel groups devices holding more than one subtype row.
const inconsistentLabel = "Inconsistent"

const countDevicesSQL = `
	SELECT
		CASE
			WHEN (CASE WHEN pc.id IS NULL THEN 0 ELSE 1 END)
				+ (CASE WHEN e.id IS NULL THEN 0 ELSE 1 END)
				+ (CASE WHEN sw.id IS NULL THEN 0 ELSE 1 END) > 1 THEN 'Inconsistent'
			WHEN pc.id IS NOT NULL THEN 'PersonalComputer'
			WHEN e.id IS NOT NULL THEN 'Embedded'
			WHEN sw.id IS NOT NULL THEN 'Smartwatch'
			ELSE 'Unknown'
		END AS kind,
		COUNT(*)
	FROM devices d
	LEFT JOIN personal_computers pc ON pc.device_id = d.id
	LEFT JOIN embedded_devices e ON e.device_id = d.id
	LEFT JOIN smartwatches sw ON sw.device_id = d.id
	GROUP BY 1`

// CountDevices tallies devices by subtype without reading their rows.
func (s *SQLStore) CountDevices(ctx context.Context) (*Counts, error) {
	rows, err := s.db.QueryContext(ctx, countDevicesSQL)
	if err != nil {
		return nil, storageErr("counting devices", err)
	}
	defer rows.Close()

	counts := &Counts{ByKind: make(map[Kind]int)}
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, storageErr("scanning device count", err)
		}
		counts.Total += n
		if label == inconsistentLabel {
			counts.Inconsistent += n
			continue
		}
		counts.ByKind[Kind(label)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating device counts", err)
	}
	return counts, nil
}

// storageErr wraps a driver failure so callers can match ErrStorageUnavailable
// while the original cause stays inspectable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

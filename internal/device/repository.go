package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByDeviceID retrieves a device with its last-known state.
	// Returns ErrNotFound if the device has never announced.
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)

	// List retrieves all devices with their last-known state,
	// ordered by device_id.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device row plus its default state row,
	// atomically. An empty deviceType falls back to DefaultDeviceType.
	// Returns ErrAlreadyExists if the device_id is taken.
	Create(ctx context.Context, deviceID, deviceType string, lastSeen time.Time) (*Device, error)

	// TouchLastSeen updates only the last_seen timestamp.
	TouchLastSeen(ctx context.Context, deviceID string, lastSeen time.Time) error

	// UpdateState merges a device-originated state report into the
	// stored state and bumps last_seen. Absent patch fields keep their
	// stored values.
	UpdateState(ctx context.Context, deviceID string, patch StatePatch, reportedAt time.Time) error

	// UpdateName sets the friendly name. A nil name clears it.
	// Returns ErrNotFound if the device does not exist.
	UpdateName(ctx context.Context, deviceID string, name *string) error

	// Count returns the number of known devices.
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the
// schema migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `
	d.id, d.device_id, d.friendly_name, d.device_type, d.last_seen, d.created_at,
	s.brightness, s.color_r, s.color_g, s.color_b, s.effect, s.updated_at`

// GetByDeviceID retrieves a device with its last-known state.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices d
		LEFT JOIN device_state s ON s.device_id = d.device_id
		WHERE d.device_id = ?`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by device_id: %w", err)
	}
	return device, nil
}

// List retrieves all devices with their last-known state.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices d
		LEFT JOIN device_state s ON s.device_id = d.device_id
		ORDER BY d.device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Create inserts a new device row plus its default state row.
// Both inserts run in one transaction so a device never exists
// without a state row.
func (r *SQLiteRepository) Create(ctx context.Context, deviceID, deviceType string, lastSeen time.Time) (*Device, error) {
	if deviceType == "" {
		deviceType = DefaultDeviceType
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC()
	seen := lastSeen.UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (device_id, device_type, last_seen, created_at)
		VALUES (?, ?, ?, ?)`,
		deviceID, deviceType, seen, now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("inserting device: %w", err)
	}

	color := DefaultColor()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO device_state (device_id, brightness, color_r, color_g, color_b, effect, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deviceID, DefaultBrightness, color.R, color.G, color.B, DefaultEffect, now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting device state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing device create: %w", err)
	}

	return r.GetByDeviceID(ctx, deviceID)
}

// TouchLastSeen updates only the last_seen timestamp.
func (r *SQLiteRepository) TouchLastSeen(ctx context.Context, deviceID string, lastSeen time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE device_id = ?",
		lastSeen.UTC().Format(time.RFC3339), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating last_seen: %w", err)
	}
	return checkAffected(result)
}

// UpdateState merges a state report into the stored state and bumps
// last_seen. Only fields present in the patch are written; COALESCE
// keeps the stored value when the bound parameter is NULL.
func (r *SQLiteRepository) UpdateState(ctx context.Context, deviceID string, patch StatePatch, reportedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var colorR, colorG, colorB *int
	if patch.Color != nil {
		colorR, colorG, colorB = &patch.Color.R, &patch.Color.G, &patch.Color.B
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE device_state
		SET brightness = COALESCE(?, brightness),
		    color_r = COALESCE(?, color_r),
		    color_g = COALESCE(?, color_g),
		    color_b = COALESCE(?, color_b),
		    effect = COALESCE(?, effect),
		    updated_at = ?
		WHERE device_id = ?`,
		patch.Brightness, colorR, colorG, colorB, patch.Effect,
		reportedAt.UTC().Format(time.RFC3339), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating device state: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE device_id = ?",
		reportedAt.UTC().Format(time.RFC3339), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating last_seen: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state update: %w", err)
	}
	return nil
}

// UpdateName sets or clears the friendly name.
func (r *SQLiteRepository) UpdateName(ctx context.Context, deviceID string, name *string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET friendly_name = ? WHERE device_id = ?",
		nullableString(name), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating friendly_name: %w", err)
	}
	return checkAffected(result)
}

// Count returns the number of known devices.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return count, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a joined devices/device_state row into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var friendlyName, lastSeen sql.NullString
	var createdAt string
	var brightness, colorR, colorG, colorB sql.NullInt64
	var effect, stateUpdatedAt sql.NullString

	err := scanner.Scan(
		&d.ID,
		&d.DeviceID,
		&friendlyName,
		&d.DeviceType,
		&lastSeen,
		&createdAt,
		&brightness,
		&colorR,
		&colorG,
		&colorB,
		&effect,
		&stateUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if friendlyName.Valid {
		d.FriendlyName = &friendlyName.String
	}
	if lastSeen.Valid {
		t, err := time.Parse(time.RFC3339, lastSeen.String)
		if err == nil {
			d.LastSeen = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	// The LEFT JOIN leaves state columns NULL for a device whose state
	// row is missing; treat that as "no stored state".
	if brightness.Valid && effect.Valid {
		state := DeviceState{
			DeviceID:   d.DeviceID,
			Brightness: int(brightness.Int64),
			Color: Color{
				R: int(colorR.Int64),
				G: int(colorG.Int64),
				B: int(colorB.Int64),
			},
			Effect: effect.String,
		}
		if stateUpdatedAt.Valid {
			t, err := time.Parse(time.RFC3339, stateUpdatedAt.String)
			if err == nil {
				state.UpdatedAt = t
			}
		}
		d.State = &state
	}

	return &d, nil
}

// checkAffected converts a zero-row update into ErrNotFound.
func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}

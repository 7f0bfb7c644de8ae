package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id     TEXT NOT NULL UNIQUE,
			friendly_name TEXT,
			device_type   TEXT NOT NULL DEFAULT 'led_strip',
			last_seen     TEXT,
			created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE INDEX idx_devices_device_id ON devices(device_id);

		CREATE TABLE device_state (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id  TEXT NOT NULL UNIQUE REFERENCES devices(device_id),
			brightness INTEGER NOT NULL DEFAULT 100,
			color_r    INTEGER NOT NULL DEFAULT 255,
			color_g    INTEGER NOT NULL DEFAULT 255,
			color_b    INTEGER NOT NULL DEFAULT 255,
			effect     TEXT NOT NULL DEFAULT 'none',
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE INDEX idx_device_state_device_id ON device_state(device_id);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates device with default state", func(t *testing.T) {
		seen := time.Now().UTC().Truncate(time.Second)

		got, err := repo.Create(ctx, "strip-a1b2", "", seen)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if got.DeviceID != "strip-a1b2" {
			t.Errorf("DeviceID = %q, want %q", got.DeviceID, "strip-a1b2")
		}
		if got.DeviceType != DefaultDeviceType {
			t.Errorf("DeviceType = %q, want %q", got.DeviceType, DefaultDeviceType)
		}
		if got.FriendlyName != nil {
			t.Errorf("FriendlyName = %q, want nil", *got.FriendlyName)
		}
		if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
			t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
		}
		if got.State == nil {
			t.Fatal("State = nil, want default state row")
		}
		if got.State.Brightness != DefaultBrightness {
			t.Errorf("Brightness = %d, want %d", got.State.Brightness, DefaultBrightness)
		}
		if got.State.Color != DefaultColor() {
			t.Errorf("Color = %+v, want %+v", got.State.Color, DefaultColor())
		}
		if got.State.Effect != DefaultEffect {
			t.Errorf("Effect = %q, want %q", got.State.Effect, DefaultEffect)
		}
	})

	t.Run("duplicate device_id returns ErrAlreadyExists", func(t *testing.T) {
		_, err := repo.Create(ctx, "strip-a1b2", "", time.Now())
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("Create() error = %v, want ErrAlreadyExists", err)
		}
	})
}

func TestSQLiteRepository_GetByDeviceID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "strip-a1b2", "", time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("found", func(t *testing.T) {
		got, err := repo.GetByDeviceID(ctx, "strip-a1b2")
		if err != nil {
			t.Fatalf("GetByDeviceID() error = %v", err)
		}
		if got.DeviceID != "strip-a1b2" {
			t.Errorf("DeviceID = %q, want %q", got.DeviceID, "strip-a1b2")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByDeviceID(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByDeviceID() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, id := range []string{"strip-c", "strip-a", "strip-b"} {
		if _, err := repo.Create(ctx, id, "", time.Now()); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("List() returned %d devices, want 3", len(devices))
	}

	// Ordered by device_id.
	want := []string{"strip-a", "strip-b", "strip-c"}
	for i, id := range want {
		if devices[i].DeviceID != id {
			t.Errorf("List()[%d] = %q, want %q", i, devices[i].DeviceID, id)
		}
		if devices[i].State == nil {
			t.Errorf("List()[%d].State = nil, want joined state row", i)
		}
	}
}

func TestSQLiteRepository_UpdateState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "strip-a1b2", "", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("partial patch keeps absent fields", func(t *testing.T) {
		reported := time.Now().UTC().Truncate(time.Second)
		patch := StatePatch{Brightness: IntPtr(40)}

		if err := repo.UpdateState(ctx, "strip-a1b2", patch, reported); err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}

		got, err := repo.GetByDeviceID(ctx, "strip-a1b2")
		if err != nil {
			t.Fatalf("GetByDeviceID() error = %v", err)
		}
		if got.State.Brightness != 40 {
			t.Errorf("Brightness = %d, want 40", got.State.Brightness)
		}
		if got.State.Color != DefaultColor() {
			t.Errorf("Color = %+v, want untouched default", got.State.Color)
		}
		if got.State.Effect != DefaultEffect {
			t.Errorf("Effect = %q, want untouched default", got.State.Effect)
		}
		if got.LastSeen == nil || !got.LastSeen.Equal(reported) {
			t.Errorf("LastSeen = %v, want bumped to %v", got.LastSeen, reported)
		}
	})

	t.Run("full patch", func(t *testing.T) {
		patch := StatePatch{
			Brightness: IntPtr(5),
			Color:      ColorPtr(Color{R: 1, G: 2, B: 3}),
			Effect:     StringPtr(EffectChase),
		}
		if err := repo.UpdateState(ctx, "strip-a1b2", patch, time.Now()); err != nil {
			t.Fatalf("UpdateState() error = %v", err)
		}

		got, err := repo.GetByDeviceID(ctx, "strip-a1b2")
		if err != nil {
			t.Fatalf("GetByDeviceID() error = %v", err)
		}
		if got.State.Brightness != 5 {
			t.Errorf("Brightness = %d, want 5", got.State.Brightness)
		}
		if got.State.Color != (Color{R: 1, G: 2, B: 3}) {
			t.Errorf("Color = %+v, want {1 2 3}", got.State.Color)
		}
		if got.State.Effect != EffectChase {
			t.Errorf("Effect = %q, want %q", got.State.Effect, EffectChase)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		err := repo.UpdateState(ctx, "missing", StatePatch{Brightness: IntPtr(1)}, time.Now())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateState() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteRepository_UpdateName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "strip-a1b2", "", time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "Bedroom Strip"
	if err := repo.UpdateName(ctx, "strip-a1b2", &name); err != nil {
		t.Fatalf("UpdateName() error = %v", err)
	}

	got, err := repo.GetByDeviceID(ctx, "strip-a1b2")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.FriendlyName == nil || *got.FriendlyName != name {
		t.Errorf("FriendlyName = %v, want %q", got.FriendlyName, name)
	}

	// Clearing stores NULL, not empty text.
	if err := repo.UpdateName(ctx, "strip-a1b2", nil); err != nil {
		t.Fatalf("UpdateName(nil) error = %v", err)
	}
	got, err = repo.GetByDeviceID(ctx, "strip-a1b2")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.FriendlyName != nil {
		t.Errorf("FriendlyName = %q, want nil after clear", *got.FriendlyName)
	}

	if err := repo.UpdateName(ctx, "missing", &name); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateName(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_TouchLastSeen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "strip-a1b2", "", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	seen := time.Now().UTC().Truncate(time.Second)
	if err := repo.TouchLastSeen(ctx, "strip-a1b2", seen); err != nil {
		t.Fatalf("TouchLastSeen() error = %v", err)
	}

	got, err := repo.GetByDeviceID(ctx, "strip-a1b2")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
	}

	if err := repo.TouchLastSeen(ctx, "missing", seen); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchLastSeen(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Count(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	if _, err := repo.Create(ctx, "strip-a1b2", "", time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

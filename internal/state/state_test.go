package state

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the schema initialized.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to set pragma: %v", err)
	}

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to init schema: %v", err)
	}

	return db
}

func TestGetPreferences_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	prefs, err := getPreferences(context.Background(), db)
	if err != nil {
		t.Fatalf("getPreferences failed: %v", err)
	}
	if prefs != DefaultPreferences() {
		t.Errorf("getPreferences() = %+v, want defaults %+v", prefs, DefaultPreferences())
	}
}

func TestSaveAndGetPreferences(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	want := Preferences{
		Volume:        0.35,
		Shuffle:       true,
		Repeat:        true,
		AutoplayOnEnd: false,
		PlayerMode:    PlayerModeCompact,
	}
	if err := savePreferences(context.Background(), db, want); err != nil {
		t.Fatalf("savePreferences failed: %v", err)
	}

	got, err := getPreferences(context.Background(), db)
	if err != nil {
		t.Fatalf("getPreferences failed: %v", err)
	}
	if got != want {
		t.Errorf("getPreferences() = %+v, want %+v", got, want)
	}
}

func TestSavePreferences_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, savePreferences(ctx, db, Preferences{Volume: 0.2, PlayerMode: PlayerModeCompact}))
	require.NoError(t, savePreferences(ctx, db, Preferences{Volume: 0.9, Shuffle: true, PlayerMode: PlayerModeExpanded}))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM preferences`).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := getPreferences(ctx, db)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.Volume, 1e-9)
	assert.True(t, got.Shuffle)
}

func TestSavePreferences_Normalizes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, savePreferences(ctx, db, Preferences{Volume: 3, PlayerMode: "weird"}))

	got, err := getPreferences(ctx, db)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Volume, 1e-9)
	assert.Equal(t, PlayerModeExpanded, got.PlayerMode)
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, initSchema(context.Background(), db))

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestManager_DebouncedSaveFlushedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	m, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	m.SavePreferences(Preferences{Volume: 0.5, PlayerMode: PlayerModeCompact})
	m.SavePreferences(Preferences{Volume: 0.6, Repeat: true, PlayerMode: PlayerModeCompact})

	// Pending values are visible before they hit the database.
	got, err := m.GetPreferences()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.Volume, 1e-9)

	require.NoError(t, m.Close())

	m, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	got, err = m.GetPreferences()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.Volume, 1e-9)
	assert.True(t, got.Repeat)
}

func TestManager_DebouncedSaveWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	m, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	m.SavePreferences(Preferences{Volume: 0.25, PlayerMode: PlayerModeExpanded})

	assert.Eventually(t, func() bool {
		p, err := getPreferences(context.Background(), m.db)
		return err == nil && p.Volume == 0.25
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPlayerMode_Toggle(t *testing.T) {
	if PlayerModeExpanded.Toggle() != PlayerModeCompact {
		t.Error("expanded should toggle to compact")
	}
	if PlayerModeCompact.Toggle() != PlayerModeExpanded {
		t.Error("compact should toggle to expanded")
	}
}

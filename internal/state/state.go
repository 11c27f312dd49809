package state

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "wavestream"
	dbFileName   = "wavestream.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db  *sql.DB
	log zerolog.Logger

	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *Preferences
}

// Open opens the database at path, or at the XDG data location when path is
// empty.
func Open(path string, log zerolog.Logger) (*Manager, error) {
	if path == "" {
		var err error
		path, err = getDBPath()
		if err != nil {
			return nil, errors.Wrap(err, "resolve state path")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open state db")
	}

	m, err := New(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// New wraps an open database, creating the schema if needed.
func New(db *sql.DB, log zerolog.Logger) (*Manager, error) {
	if err := initSchema(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "init schema")
	}
	return &Manager{db: db, log: log.With().Str("component", "state").Logger()}, nil
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		if err := savePreferences(context.Background(), m.db, *pending); err != nil {
			m.log.Warn().Err(err).Msg("flush preferences")
		}
	}

	return m.db.Close()
}

// GetPreferences returns the stored preferences, or the defaults when none
// were saved yet.
func (m *Manager) GetPreferences() (Preferences, error) {
	m.saveMu.Lock()
	pending := m.pending
	m.saveMu.Unlock()
	if pending != nil {
		return *pending, nil
	}
	return getPreferences(context.Background(), m.db)
}

// SavePreferences schedules a debounced write.
func (m *Manager) SavePreferences(p Preferences) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &p

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			if err := savePreferences(context.Background(), m.db, *pending); err != nil {
				m.log.Warn().Err(err).Msg("save preferences")
			}
		}
	})
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

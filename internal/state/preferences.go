package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/llehouerou/wavestream/internal/db"
)

// PlayerMode is the visual layout of the player.
type PlayerMode string

const (
	PlayerModeExpanded PlayerMode = "expanded"
	PlayerModeCompact  PlayerMode = "compact"
)

// Toggle returns the other mode.
func (m PlayerMode) Toggle() PlayerMode {
	if m == PlayerModeCompact {
		return PlayerModeExpanded
	}
	return PlayerModeCompact
}

// Valid reports whether m is a known mode.
func (m PlayerMode) Valid() bool {
	return m == PlayerModeExpanded || m == PlayerModeCompact
}

// Preferences are the settings that survive across sessions. The queue and
// playback position are never stored.
type Preferences struct {
	Volume        float64
	Shuffle       bool
	Repeat        bool
	AutoplayOnEnd bool
	PlayerMode    PlayerMode
}

// DefaultPreferences is what a first session starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Volume:        1.0,
		AutoplayOnEnd: true,
		PlayerMode:    PlayerModeExpanded,
	}
}

func (p Preferences) normalized() Preferences {
	p.Volume = min(max(p.Volume, 0), 1)
	if !p.PlayerMode.Valid() {
		p.PlayerMode = PlayerModeExpanded
	}
	return p
}

func getPreferences(ctx context.Context, conn *sql.DB) (Preferences, error) {
	var p Preferences
	var mode string
	row := conn.QueryRowContext(ctx, `
		SELECT volume, shuffle, repeat_enabled, autoplay_on_end, player_mode
		FROM preferences WHERE id = 1
	`)
	err := row.Scan(&p.Volume, &p.Shuffle, &p.Repeat, &p.AutoplayOnEnd, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, errors.Wrap(err, "load preferences")
	}
	p.PlayerMode = PlayerMode(mode)
	return p.normalized(), nil
}

func savePreferences(ctx context.Context, conn *sql.DB, p Preferences) error {
	p = p.normalized()
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (id, volume, shuffle, repeat_enabled, autoplay_on_end, player_mode, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				volume = excluded.volume,
				shuffle = excluded.shuffle,
				repeat_enabled = excluded.repeat_enabled,
				autoplay_on_end = excluded.autoplay_on_end,
				player_mode = excluded.player_mode,
				updated_at = excluded.updated_at
		`, p.Volume, db.BoolToInt(p.Shuffle), db.BoolToInt(p.Repeat), db.BoolToInt(p.AutoplayOnEnd),
			string(p.PlayerMode), time.Now().Unix())
		return errors.Wrap(err, "save preferences")
	})
}

// internal/state/interface.go
package state

// Interface defines the preferences store contract for dependency injection and testing.
type Interface interface {
	GetPreferences() (Preferences, error)
	SavePreferences(p Preferences)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)

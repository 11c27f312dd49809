package player

// State is the lifecycle of a single output.
//
//	Stopped --play--> Playing --pause--> Paused --play--> Playing
//
// An output starts Stopped and returns to Stopped when the track ends or the
// output is closed.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// CanPause returns true if the state allows pausing.
func (s State) CanPause() bool {
	return s == Playing
}
